// Package mcp exposes Asha as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"asha/internal/browser"
	"asha/internal/logging"
	"asha/internal/responder"
	"asha/internal/safety"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolAskCareerAdvisor    = "ask_career_advisor"
	ToolSearchJobs          = "search_jobs"
	ToolListEvents          = "list_events"
	ToolCheckResponseSafety = "check_response_safety"
)

// Answerer produces chat replies.
type Answerer interface {
	GenerateResponse(ctx context.Context, message string, history []string) (responder.Reply, error)
}

// JobBoard lists HerKey jobs and events.
type JobBoard interface {
	AllJobs(ctx context.Context) ([]browser.Job, error)
	WorkFromHomeJobs(ctx context.Context) ([]browser.Job, error)
	JobsByKeyword(ctx context.Context, keyword string) ([]browser.Job, error)
	FeaturedEvents(ctx context.Context) ([]browser.Event, error)
}

// Services backs the tools. A nil field leaves its tool unregistered.
type Services struct {
	Answerer Answerer
	Board    JobBoard
	Safety   *safety.Pipeline
}

type handlers struct {
	svc Services
}

// NewServer builds an MCP server with a tool per available service.
func NewServer(name, version string, svc Services) *server.MCPServer {
	s := server.NewMCPServer(name, version)
	h := &handlers{svc: svc}

	if svc.Answerer != nil {
		tool := mcp.NewTool(ToolAskCareerAdvisor,
			mcp.WithDescription("Ask the Asha career advisor a question. Mentioning jobs or events adds live HerKey listings."),
		)
		tool.InputSchema = mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{"type": "string", "description": "The question to ask"},
				"history": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Earlier conversation messages, oldest first",
				},
			},
			Required: []string{"message"},
		}
		s.AddTool(tool, h.askCareerAdvisor)
	}

	if svc.Board != nil {
		jobs := mcp.NewTool(ToolSearchJobs,
			mcp.WithDescription("Search HerKey job listings by keyword, or list work-from-home or latest jobs"),
		)
		jobs.InputSchema = mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"keyword":        map[string]interface{}{"type": "string", "description": "Search keyword, e.g. \"data analyst\" (optional)"},
				"work_from_home": map[string]interface{}{"type": "boolean", "description": "Only work-from-home jobs"},
				"limit":          map[string]interface{}{"type": "integer", "description": "Max jobs to return (default 10)"},
			},
		}
		s.AddTool(jobs, h.searchJobs)

		events := mcp.NewTool(ToolListEvents,
			mcp.WithDescription("List upcoming featured HerKey events, bootcamps and workshops"),
		)
		events.InputSchema = mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{"type": "integer", "description": "Max events to return (default 10)"},
			},
		}
		s.AddTool(events, h.listEvents)
	}

	if svc.Safety != nil {
		tool := mcp.NewTool(ToolCheckResponseSafety,
			mcp.WithDescription("Run a chatbot reply through bias mitigation, inclusive-language rewriting and safety guardrails"),
		)
		tool.InputSchema = mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"response":   map[string]interface{}{"type": "string", "description": "The reply to check"},
				"user_input": map[string]interface{}{"type": "string", "description": "The user message the reply answers (optional)"},
			},
			Required: []string{"response"},
		}
		s.AddTool(tool, h.checkResponseSafety)
	}

	return s
}

// ServeStdio serves s on stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	logging.MCP("Serving MCP tools on stdio")
	return server.ServeStdio(s)
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *handlers) askCareerAdvisor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	message, _ := args["message"].(string)
	if strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	var history []string
	if raw, ok := args["history"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				history = append(history, s)
			}
		}
	}

	reply, err := h.svc.Answerer.GenerateResponse(ctx, message, history)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to answer: %v", err)), nil
	}
	return mcp.NewToolResultText(reply.Combined()), nil
}

func (h *handlers) searchJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	keyword := ""
	if v, ok := args["keyword"].(string); ok {
		keyword = strings.TrimSpace(v)
	}
	wfh, _ := args["work_from_home"].(bool)
	limit := intArg(args, "limit", 10)

	var (
		jobs []browser.Job
		err  error
	)
	switch {
	case wfh:
		jobs, err = h.svc.Board.WorkFromHomeJobs(ctx)
	case keyword != "":
		jobs, err = h.svc.Board.JobsByKeyword(ctx, keyword)
	default:
		jobs, err = h.svc.Board.AllJobs(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch jobs: %v", err)), nil
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jsonResult(jobs)
}

func (h *handlers) listEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	limit := intArg(args, "limit", 10)

	events, err := h.svc.Board.FeaturedEvents(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch events: %v", err)), nil
	}
	if len(events) > limit {
		events = events[:limit]
	}
	return jsonResult(events)
}

func (h *handlers) checkResponseSafety(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	response, _ := args["response"].(string)
	if response == "" {
		return mcp.NewToolResultError("response is required"), nil
	}
	userInput, _ := args["user_input"].(string)

	return jsonResult(h.svc.Safety.Process(userInput, response))
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int(v)
	}
	return fallback
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
