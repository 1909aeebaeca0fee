package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/appforge/internal/core/db"
	"github.com/neilberkman/appforge/internal/core/models"
	"github.com/neilberkman/appforge/internal/core/preview"
	"github.com/neilberkman/appforge/internal/core/search"
	"github.com/neilberkman/appforge/internal/core/workflow"
)

// ControllerFactory builds a controller wired to the model and the history db
type ControllerFactory func(ctx context.Context) (*workflow.Controller, error)

// GeneratePlanArgs defines arguments for the generate_plan tool
type GeneratePlanArgs struct {
	Description string `json:"description" jsonschema:"description=What the app should do,required"`
}

// ProjectArgs identifies a saved project
type ProjectArgs struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project id or unique prefix,required"`
}

// ImproveCodeArgs defines arguments for the improve_code tool
type ImproveCodeArgs struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project id or unique prefix,required"`
	Request   string `json:"request" jsonschema:"description=The change to make,required"`
}

// ListProjectsArgs defines arguments for the list_projects tool
type ListProjectsArgs struct {
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max projects to return (default: 20)"`
	Since string `json:"since,omitempty" jsonschema:"description=Only projects updated after this date"`
}

// SearchProjectsArgs defines arguments for the search_projects tool
type SearchProjectsArgs struct {
	Query string `json:"query" jsonschema:"description=Search text with optional state:/after:/before: filters,required"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max results (default: 10)"`
}

// FileEntry is one generated source file
type FileEntry struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ProjectDetail is a full project as returned by the tools
type ProjectDetail struct {
	ProjectID string        `json:"project_id"`
	State     string        `json:"state"`
	Prompt    string        `json:"prompt"`
	Plan      string        `json:"plan,omitempty"`
	Files     []FileEntry   `json:"files,omitempty"`
	Chat      []ChatMessage `json:"chat,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	UpdatedAt string        `json:"updated_at"`
}

// ChatMessage is one turn of the revision chat
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProjectSummary represents a project in the list view
type ProjectSummary struct {
	ProjectID    string `json:"project_id"`
	Prompt       string `json:"prompt"`
	State        string `json:"state"`
	FileCount    int    `json:"file_count"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
}

// Server holds what the tool handlers need
type Server struct {
	database      *db.DB
	newController ControllerFactory
}

// NewServer creates the MCP server with every tool registered
func NewServer(database *db.DB, newController ControllerFactory, version string) *server.MCPServer {
	h := &Server{database: database, newController: newController}

	s := server.NewMCPServer("AppForge", version)

	s.AddTool(mcp.NewTool("generate_plan",
		mcp.WithDescription("Start a new React app from a description and return its implementation plan. The project is saved; pass its project_id to generate_code."),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What the app should do")),
	), h.generatePlan)

	s.AddTool(mcp.NewTool("generate_code",
		mcp.WithDescription("Generate (or regenerate) the JSX and CSS files for a project whose plan has been produced"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id or unique prefix")),
	), h.generateCode)

	s.AddTool(mcp.NewTool("improve_code",
		mcp.WithDescription("Revise a project's generated code from a natural language request"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id or unique prefix")),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The change to make")),
	), h.improveCode)

	s.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Return the self-contained HTML preview document for a project's current code"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id or unique prefix")),
	), h.renderPreview)

	s.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List recent projects, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max projects to return (default: 20)")),
		mcp.WithString("since",
			mcp.Description("Only projects updated after this date ('2026-01-01', 'yesterday', 'last week')")),
	), h.listProjects)

	s.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Retrieve a project's prompt, plan, files and chat"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project id or unique prefix")),
	), h.getProject)

	s.AddTool(mcp.NewTool("search_projects",
		mcp.WithDescription("Full-text search over project prompts, plans and chat. Supports state:, after: and before: filters."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text")),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)")),
	), h.searchProjects)

	return s
}

// StartServer serves the tools over stdio until the client disconnects
func StartServer(database *db.DB, newController ControllerFactory, version string) error {
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			log.Printf("Error closing database: %v", closeErr)
		}
	}()
	return server.ServeStdio(NewServer(database, newController, version))
}

func bindArgs(request mcp.CallToolRequest, dst interface{}) error {
	argsBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(argsBytes, dst)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

// failure reports the session's user-facing message when there is one
func failure(ctrl *workflow.Controller, err error) *mcp.CallToolResult {
	if ctrl != nil {
		if msg := ctrl.Snapshot().LastError; msg != "" && !errors.Is(err, workflow.ErrInvalidTransition) {
			return mcp.NewToolResultError(msg)
		}
	}
	return mcp.NewToolResultError(err.Error())
}

func (h *Server) generatePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args GeneratePlanArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	ctrl, err := h.newController(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ctrl.SubmitPrompt(ctx, args.Description); err != nil {
		return failure(ctrl, err), nil
	}
	return jsonResult(detail(ctrl.Snapshot()))
}

// load resumes a saved project in a fresh controller
func (h *Server) load(ctx context.Context, projectID string) (*workflow.Controller, error) {
	s, err := h.database.GetSession(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ctrl, err := h.newController(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(s); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func (h *Server) generateCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ProjectArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	ctrl, err := h.load(ctx, args.ProjectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch ctrl.Snapshot().State {
	case models.StatePlanReview:
		err = ctrl.ApprovePlan(ctx)
	case models.StateCodeReview:
		err = ctrl.RegenerateCode(ctx)
	default:
		err = fmt.Errorf("%w: project is in state %s, generate_code needs plan_review or code_review",
			workflow.ErrInvalidTransition, ctrl.Snapshot().State)
	}
	if err != nil {
		return failure(ctrl, err), nil
	}
	return jsonResult(detail(ctrl.Snapshot()))
}

func (h *Server) improveCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ImproveCodeArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	ctrl, err := h.load(ctx, args.ProjectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// walk forward to the chat state the way the UI would
	if ctrl.Snapshot().State == models.StateCodeReview {
		if err := ctrl.ApproveCode(); err != nil {
			return failure(ctrl, err), nil
		}
	}
	if ctrl.Snapshot().State == models.StatePreview {
		if err := ctrl.OpenChat(); err != nil {
			return failure(ctrl, err), nil
		}
	}

	if err := ctrl.SendMessage(ctx, args.Request); err != nil {
		return failure(ctrl, err), nil
	}
	return jsonResult(detail(ctrl.Snapshot()))
}

func (h *Server) renderPreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ProjectArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	s, err := h.database.GetSession(ctx, args.ProjectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := preview.Render(s.Files)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}

	warnings := make([]string, 0, len(doc.Warnings))
	for _, w := range doc.Warnings {
		warnings = append(warnings, w.String())
	}
	return jsonResult(map[string]interface{}{
		"project_id": s.ID,
		"html":       doc.HTML,
		"warnings":   warnings,
	})
}

func (h *Server) listProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ListProjectsArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	opts := db.ListOptions{Limit: args.Limit}
	if opts.Limit == 0 {
		opts.Limit = 20
	}
	if args.Since != "" {
		since, ok := search.ParseDate(args.Since, time.Now())
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("could not understand since %q", args.Since)), nil
		}
		opts.Since = since
	}

	projects, err := h.database.ListProjects(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	summaries := []ProjectSummary{}
	for _, p := range projects {
		summaries = append(summaries, ProjectSummary{
			ProjectID:    p.SessionID,
			Prompt:       p.UserPrompt,
			State:        p.State.String(),
			FileCount:    p.FileCount,
			MessageCount: p.MessageCount,
			UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(map[string]interface{}{"projects": summaries})
}

func (h *Server) getProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ProjectArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	s, err := h.database.GetSession(ctx, args.ProjectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(detail(s))
}

func (h *Server) searchProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SearchProjectsArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	limit := args.Limit
	if limit == 0 {
		limit = 10
	}

	results, err := search.Search(ctx, h.database, args.Query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	type match struct {
		ProjectID string `json:"project_id"`
		Prompt    string `json:"prompt"`
		State     string `json:"state"`
		Field     string `json:"field"`
		Snippet   string `json:"snippet"`
		UpdatedAt string `json:"updated_at"`
	}
	matches := []match{}
	for _, r := range results {
		matches = append(matches, match{
			ProjectID: r.SessionID,
			Prompt:    r.Prompt,
			State:     r.State,
			Field:     r.Field,
			Snippet:   r.Snippet,
			UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(map[string]interface{}{"results": matches})
}

func detail(s models.Session) ProjectDetail {
	d := ProjectDetail{
		ProjectID: s.ID,
		State:     s.State.String(),
		Prompt:    s.UserPrompt,
		Plan:      s.Plan,
		LastError: s.LastError,
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
	s.Files.Each(func(name, content string) {
		d.Files = append(d.Files, FileEntry{Name: name, Content: content})
	})
	for _, m := range s.ChatHistory {
		d.Chat = append(d.Chat, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return d
}
