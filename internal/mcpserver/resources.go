package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/efebarandurmaz/pramaanx/internal/heatmap"
)

const heatmapURI = "pramaan://heatmap"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         heatmapURI,
		Name:        "heatmap",
		Description: "Reported incident locations as [lat, lon, weight] triples",
		MIMEType:    "application/json",
	}, s.handleHeatmapResource)
}

func (s *Server) handleHeatmapResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	points := s.ports.Heatmap
	if points == nil {
		points = heatmap.DefaultPoints()
	}
	data, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("encoding heatmap: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
