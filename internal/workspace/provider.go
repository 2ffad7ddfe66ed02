package workspace

import (
	"os"

	reflerrors "github.com/standardbeagle/reflens/internal/errors"
	"github.com/standardbeagle/reflens/internal/types"
)

// Provider reads file text for the scanner and parser. Reads always hit the
// filesystem: a file edited between queries is seen fresh, and a file deleted
// since the snapshot fails with an error the caller treats as a skip.
type Provider struct {
	ws *Workspace
}

// NewProvider creates a provider over a workspace snapshot.
func NewProvider(ws *Workspace) *Provider {
	return &Provider{ws: ws}
}

// Read returns the current content of id. Errors are typed FileErrors so
// callers can record them as per-file diagnostics and continue.
func (p *Provider) Read(id types.FileID) ([]byte, error) {
	abs := p.ws.AbsPathOf(id)
	if abs == "" {
		return nil, reflerrors.NewFileError("read", "", os.ErrNotExist)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, reflerrors.NewFileError("read", p.ws.PathOf(id), err)
	}
	return data, nil
}

// Workspace returns the snapshot the provider reads from.
func (p *Provider) Workspace() *Workspace { return p.ws }
