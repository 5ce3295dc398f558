// Package mcpserver exposes fee verification, interaction triage and
// complaint generation as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/efebarandurmaz/pramaanx/internal/classify"
	"github.com/efebarandurmaz/pramaanx/internal/complaint"
	"github.com/efebarandurmaz/pramaanx/internal/heatmap"
	"github.com/efebarandurmaz/pramaanx/internal/retrieval"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrNoServices is returned when no service is provided, leaving no tool
// to register.
var ErrNoServices = errors.New("mcpserver: at least one service is required")

// Verifier checks a fee claim against the official records.
type Verifier interface {
	Verify(ctx context.Context, query string) (retrieval.Result, error)
}

// Classifier triages a transcript.
type Classifier interface {
	Classify(ctx context.Context, transcript string) classify.Verdict
}

// ComplaintGenerator renders a complaint for a transcript.
type ComplaintGenerator interface {
	Generate(ctx context.Context, transcript string) (*complaint.Artifact, error)
}

// Ports aggregates the services the MCP server drives. Tools for missing
// services are not registered.
type Ports struct {
	Verifier   Verifier
	Classifier Classifier
	Complaints ComplaintGenerator
	Heatmap    []heatmap.Point
}

// Validate ensures at least one tool-backing service is set.
func (p *Ports) Validate() error {
	if p.Verifier == nil && p.Classifier == nil && p.Complaints == nil {
		return ErrNoServices
	}
	return nil
}

// Server is the MCP server for PramaanX.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "pramaanx",
			Version: Version,
		}, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunTransport serves over an arbitrary transport.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}
