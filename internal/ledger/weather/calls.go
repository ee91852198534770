package weather

// ModuleName is the module's name in calls, events and error codes.
const ModuleName = "weather"

// SetWeatherData is the inherent call that stores the block's reading.
type SetWeatherData[T Value] struct {
	Value T `json:"value"`
}

func (SetWeatherData[T]) Module() string { return ModuleName }
func (SetWeatherData[T]) Name() string   { return "set_weather_data" }

// OrderWeatherData asks the oracle to report the weather at a location.
type OrderWeatherData struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

func (OrderWeatherData) Module() string { return ModuleName }
func (OrderWeatherData) Name() string   { return "order_weather_data" }

// WeatherDataSet is deposited when a reading is stored.
type WeatherDataSet struct {
	Message string `json:"message"`
}

// WeatherOrderSet is deposited when an order is stored. It carries the
// strings as submitted.
type WeatherOrderSet struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

const (
	EventWeatherDataSet  = "WeatherDataSet"
	EventWeatherOrderSet = "WeatherOrderSet"
)
