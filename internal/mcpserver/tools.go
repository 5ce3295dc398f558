package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TextInput is the input schema shared by every tool.
type TextInput struct {
	Text string `json:"text" jsonschema:"the claim or transcript to examine"`
}

// FeeOutput is the output schema for verify_fee.
type FeeOutput struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
	Found  bool   `json:"found"`
}

// AnalysisOutput is the output schema for analyze_interaction.
type AnalysisOutput struct {
	IsBribe    bool   `json:"is_bribe"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ComplaintOutput is the output schema for generate_complaint.
type ComplaintOutput struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

var errEmptyText = errors.New("text is required")

func (s *Server) registerTools() {
	if s.ports.Verifier != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "verify_fee",
			Description: "Look up the official fee record closest to a claimed charge",
		}, s.handleVerifyFee)
	}

	if s.ports.Classifier != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "analyze_interaction",
			Description: "Decide whether a conversation transcript shows a bribe demand",
		}, s.handleAnalyze)
	}

	if s.ports.Complaints != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "generate_complaint",
			Description: "Write a formal vigilance complaint PDF for a transcript and return its path",
		}, s.handleComplaint)
	}
}

func (s *Server) handleVerifyFee(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextInput,
) (*mcp.CallToolResult, FeeOutput, error) {
	res, err := s.ports.Verifier.Verify(ctx, input.Text)
	if err != nil {
		return nil, FeeOutput{}, err
	}
	return nil, FeeOutput{Fact: res.Fact, Source: res.Source, Found: res.Found}, nil
}

func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextInput,
) (*mcp.CallToolResult, AnalysisOutput, error) {
	v := s.ports.Classifier.Classify(ctx, input.Text)
	return nil, AnalysisOutput{IsBribe: v.Suspected(), Suggestion: v.Suggestion()}, nil
}

func (s *Server) handleComplaint(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextInput,
) (*mcp.CallToolResult, ComplaintOutput, error) {
	if input.Text == "" {
		return nil, ComplaintOutput{}, errEmptyText
	}
	art, err := s.ports.Complaints.Generate(ctx, input.Text)
	if err != nil {
		return nil, ComplaintOutput{}, err
	}
	return nil, ComplaintOutput{Name: art.Name, Path: art.Path, Bytes: len(art.Data)}, nil
}
