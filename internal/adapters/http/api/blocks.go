package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/weatheroracle/internal/adapters/repository"
	"github.com/okian/weatheroracle/internal/chain"
)

// BlockDependencies reads the block history.
type BlockDependencies interface {
	LatestBlock(ctx context.Context) (*chain.Block, error)
	BlockByNumber(ctx context.Context, number uint64) (*chain.Block, error)
}

// BlocksHandler handles block queries.
type BlocksHandler struct {
	deps BlockDependencies
}

// NewBlocksHandler creates a new blocks handler.
func NewBlocksHandler(deps BlockDependencies) *BlocksHandler {
	return &BlocksHandler{deps: deps}
}

// HandleLatest handles GET /blocks/latest.
func (h *BlocksHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.LatestBlock(r.Context())
	writeBlock(w, "api.latest_block", b, err)
}

// HandleByNumber handles GET /blocks/{number}.
func (h *BlocksHandler) HandleByNumber(w http.ResponseWriter, r *http.Request) {
	const op = "api.block_by_number"

	n, err := strconv.ParseUint(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := h.deps.BlockByNumber(r.Context(), n)
	writeBlock(w, op, b, err)
}

func writeBlock(w http.ResponseWriter, op string, b *chain.Block, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, WrapKind(op, ErrNotFound, err))
	case err != nil:
		writeError(w, WrapKind(op, ErrInternal, err))
	default:
		writeJSON(w, http.StatusOK, b)
	}
}
