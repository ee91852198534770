package weather

import "github.com/okian/weatheroracle/internal/chain"

var (
	// ErrAlreadySet is returned when the block already holds a reading.
	ErrAlreadySet = chain.NewModuleError(ModuleName, "AlreadySet",
		"weather data already set for this block")
	// ErrWeatherOrderAlreadySet is returned when the block already holds an order.
	ErrWeatherOrderAlreadySet = chain.NewModuleError(ModuleName, "WeatherOrderAlreadySet",
		"weather order already set for this block")
	// ErrFailedParsingLatitudeOrLongitude is returned for coordinates that are
	// not decimals or do not fit scaled storage.
	ErrFailedParsingLatitudeOrLongitude = chain.NewModuleError(ModuleName, "FailedParsingLatitudeOrLongitude",
		"latitude and longitude must be signed decimal numbers")
	// ErrUnableToCreateEventData is returned when the reading cannot be
	// rendered for the event.
	ErrUnableToCreateEventData = chain.NewModuleError(ModuleName, "UnableToCreateEventData",
		"unable to format weather data")
)

// InherentErrorKind enumerates inherent failures.
type InherentErrorKind uint8

const (
	// InherentRequiredForDataPresent means the bag carried a decodable
	// reading, so the block must carry the inherent.
	InherentRequiredForDataPresent InherentErrorKind = iota
)

// InherentError is raised while checking a block's inherents. Every kind is
// fatal.
type InherentError struct {
	Kind InherentErrorKind
}

func (e *InherentError) Error() string {
	switch e.Kind {
	case InherentRequiredForDataPresent:
		return "weather inherent required: inherent data is present"
	default:
		return "weather inherent error"
	}
}

// IsFatal always reports true.
func (e *InherentError) IsFatal() bool { return true }

// Encode returns the kind as a single byte.
func (e *InherentError) Encode() []byte { return []byte{byte(e.Kind)} }
