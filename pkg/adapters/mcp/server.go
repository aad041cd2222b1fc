// Package mcp exposes quiz sessions as Model Context Protocol tools, so an agent can
// take the quiz on behalf of a device.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/runner"
	"github.com/aretw0/funnel/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	CatalogURI = "funnel://catalog"
	PlansURI   = "funnel://plans"
)

// QuizResponse is the result of every quiz tool: the screen the device is on after
// the call.
type QuizResponse struct {
	Device      string        `json:"device" jsonschema_description:"The device whose quiz was read or changed"`
	Screen      runner.Screen `json:"screen" jsonschema_description:"The current step with progress, answers and, on result steps, the summary"`
	CheckoutURL string        `json:"checkout_url,omitempty" jsonschema_description:"Payment link, set by quiz_checkout"`
}

// Server wraps the session manager and exposes it as an MCP Server.
type Server struct {
	manager   *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   mgr,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("funnel-mcp", strings.TrimSpace(funnel.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	device := mcp.WithString("device", mcp.Required(), mcp.Description("Device namespace of the visitor"))

	s.mcpServer.AddTool(mcp.NewTool("quiz_view",
		mcp.WithDescription("Show the current step of a device's quiz, starting it if needed."),
		device,
		mcp.WithString("locator", mcp.Description("Step ID to start at (optional)")),
		mcp.WithOutputSchema[QuizResponse](),
	), mcp.NewStructuredToolHandler(s.handleView))

	s.mcpServer.AddTool(mcp.NewTool("quiz_submit",
		mcp.WithDescription("Answer the current step. Choices by id or 1-based number; several choices separated by commas; input fields in order or as name=value; an email on the email step; empty input to continue past info steps."),
		device,
		mcp.WithString("input", mcp.Required(), mcp.Description("The visitor's answer")),
		mcp.WithOutputSchema[QuizResponse](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("quiz_back",
		mcp.WithDescription("Return to the previous step."),
		device,
		mcp.WithOutputSchema[QuizResponse](),
	), mcp.NewStructuredToolHandler(s.handleBack))

	s.mcpServer.AddTool(mcp.NewTool("quiz_navigate",
		mcp.WithDescription("Jump to a step by ID."),
		device,
		mcp.WithString("step_id", mcp.Required(), mcp.Description("Target step ID")),
		mcp.WithOutputSchema[QuizResponse](),
	), mcp.NewStructuredToolHandler(s.handleNavigate))

	s.mcpServer.AddTool(mcp.NewTool("quiz_set_unit",
		mcp.WithDescription("Switch between metric and imperial measurement inputs."),
		device,
		mcp.WithString("unit", mcp.Required(), mcp.Enum(string(domain.Metric), string(domain.Imperial))),
		mcp.WithOutputSchema[QuizResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetUnit))

	s.mcpServer.AddTool(mcp.NewTool("quiz_checkout",
		mcp.WithDescription("Choose a plan and get the payment link."),
		device,
		mcp.WithString("plan", mcp.Required(), mcp.Description("Plan key or 1-based number")),
		mcp.WithOutputSchema[QuizResponse](),
	), mcp.NewStructuredToolHandler(s.handleCheckout))

	s.mcpServer.AddTool(mcp.NewTool("quiz_reset",
		mcp.WithDescription("Discard a device's saved progress."),
		device,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("device", "")
		if id == "" {
			return mcp.NewToolResultError("device is required"), nil
		}
		if err := s.manager.Purge(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Progress of %q discarded.", id)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleView(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (QuizResponse, error) {
	id, err := deviceArg(args)
	if err != nil {
		return QuizResponse{}, err
	}
	locator := stringArg(args, "locator")

	var res QuizResponse
	err = s.manager.Init(ctx, id, funnel.InitOptions{Locator: locator}, func(ctx context.Context, sess *funnel.Session) error {
		res = respond(id, sess)
		return nil
	})
	return res, err
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (QuizResponse, error) {
	input, err := runner.SanitizeInput(stringArg(args, "input"))
	if err != nil {
		s.logger.Warn("MCP submit: input rejected", "err", err)
		return QuizResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return s.mutate(ctx, args, func(ctx context.Context, sess *funnel.Session) error {
		return runner.Submit(ctx, sess, input)
	})
}

func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (QuizResponse, error) {
	return s.mutate(ctx, args, func(ctx context.Context, sess *funnel.Session) error {
		return sess.GoBack(ctx)
	})
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (QuizResponse, error) {
	stepID := stringArg(args, "step_id")
	return s.mutate(ctx, args, func(ctx context.Context, sess *funnel.Session) error {
		return sess.NavigateTo(ctx, stepID)
	})
}

func (s *Server) handleSetUnit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (QuizResponse, error) {
	unit := domain.UnitSystem(stringArg(args, "unit"))
	return s.mutate(ctx, args, func(ctx context.Context, sess *funnel.Session) error {
		return sess.SetUnitSystem(ctx, unit)
	})
}

func (s *Server) handleCheckout(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (QuizResponse, error) {
	plan, ok := runner.ResolvePlan(stringArg(args, "plan"))
	if !ok {
		return QuizResponse{}, domain.Invalid("plan", domain.ErrUnknownPlan)
	}

	var url string
	res, err := s.mutate(ctx, args, func(ctx context.Context, sess *funnel.Session) error {
		var err error
		url, err = sess.Checkout(ctx, plan.Key)
		return err
	})
	if err != nil {
		return res, err
	}
	res.CheckoutURL = url
	return res, nil
}

// mutate runs fn on the device's session and returns the resulting screen.
func (s *Server) mutate(ctx context.Context, args map[string]interface{}, fn func(context.Context, *funnel.Session) error) (QuizResponse, error) {
	id, err := deviceArg(args)
	if err != nil {
		return QuizResponse{}, err
	}

	var res QuizResponse
	err = s.manager.WithSession(ctx, id, func(ctx context.Context, sess *funnel.Session) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		res = respond(id, sess)
		return nil
	})
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			s.logger.Error("MCP tool failed", "device", id, "err", err)
		}
		return QuizResponse{}, err
	}
	return res, nil
}

func respond(device string, sess *funnel.Session) QuizResponse {
	return QuizResponse{Device: device, Screen: runner.NewScreen(sess)}
}

func deviceArg(args map[string]interface{}) (string, error) {
	id := strings.TrimSpace(stringArg(args, "device"))
	if id == "" {
		return "", domain.Invalid("device", errors.New("is required"))
	}
	return id, nil
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Quiz Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(CatalogURI, s.manager.Funnel().Catalog().Steps())
	})

	s.mcpServer.AddResource(mcp.NewResource(PlansURI, "Subscription Plans",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(PlansURI, domain.Plans())
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
