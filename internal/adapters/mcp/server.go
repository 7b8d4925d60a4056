// Package mcp exposes the compliance validator as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/csdlc"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/domain"
)

const configURI = "csdlc://config"

// PathArgs names a file or directory under the server root.
type PathArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive,omitempty"`
	CrossFile bool   `json:"cross_file,omitempty"`
}

// ContentArgs carries an inline document.
type ContentArgs struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// Server wraps a compliance.Validator and exposes it as an MCP server.
type Server struct {
	validator *compliance.Validator
	root      string
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server whose tools read files under root.
func NewServer(v *compliance.Validator, root string, opts ...Option) *Server {
	s := &Server{
		validator: v,
		root:      root,
		mcpServer: server.NewMCPServer("csdlc-mcp", strings.TrimSpace(csdlc.Version)),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
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

// ServeSSE serves over Server-Sent Events on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_file",
		mcp.WithDescription("Validate one CSDL/EDMX document and report every issue found."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path, relative to the server root")),
	), mcp.NewStructuredToolHandler(s.handleValidateFile))

	s.mcpServer.AddTool(mcp.NewTool("validate_content",
		mcp.WithDescription("Validate an inline CSDL/EDMX document."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The XML document")),
		mcp.WithString("name", mcp.Description("Label used in issues (optional)")),
	), mcp.NewStructuredToolHandler(s.handleValidateContent))

	s.mcpServer.AddTool(mcp.NewTool("validate_directory",
		mcp.WithDescription("Validate every *.xml document in a directory, optionally with cross-file checks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory, relative to the server root")),
		mcp.WithBoolean("recursive", mcp.Description("Include subdirectories")),
		mcp.WithBoolean("cross_file", mcp.Description("Resolve types across files and detect conflicts")),
	), mcp.NewStructuredToolHandler(s.handleValidateDirectory))

	s.mcpServer.AddTool(mcp.NewTool("dependency_graph",
		mcp.WithDescription("Follow edmx:Reference chains from a root document and report edges, cycles and load order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root document, relative to the server root")),
	), mcp.NewStructuredToolHandler(s.handleDependencyGraph))
}

func (s *Server) handleValidateFile(ctx context.Context, _ mcp.CallToolRequest, args PathArgs) (*compliance.Result, error) {
	p, err := s.resolve(args.Path)
	if err != nil {
		return nil, err
	}
	return s.validator.ValidateFile(ctx, p)
}

func (s *Server) handleValidateContent(ctx context.Context, _ mcp.CallToolRequest, args ContentArgs) (*compliance.Result, error) {
	if args.Content == "" {
		return nil, errors.New("content is required")
	}
	return s.validator.ValidateContent(ctx, args.Name, []byte(args.Content))
}

func (s *Server) handleValidateDirectory(ctx context.Context, _ mcp.CallToolRequest, args PathArgs) (*compliance.Result, error) {
	p, err := s.resolve(args.Path)
	if err != nil {
		return nil, err
	}
	return s.validator.ValidateDirectory(ctx, p, compliance.DirectoryOptions{
		Recursive: args.Recursive,
		CrossFile: args.CrossFile,
	})
}

// handleDependencyGraph returns the partial report when cycles are disallowed;
// the cycles are listed in it.
func (s *Server) handleDependencyGraph(ctx context.Context, _ mcp.CallToolRequest, args PathArgs) (*compliance.GraphReport, error) {
	p, err := s.resolve(args.Path)
	if err != nil {
		return nil, err
	}
	report, err := s.validator.BuildDependencyGraph(ctx, p)
	if err != nil && report != nil && errors.Is(err, domain.ErrCircularDependency) {
		s.logger.Warn("dependency graph has cycles", "root", p, "cycles", len(report.Cycles))
		return report, nil
	}
	return report, err
}

func (s *Server) resolve(p string) (string, error) {
	if p == "" {
		return "", errors.New("path is required")
	}
	clean := filepath.Clean("/" + filepath.ToSlash(p))
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(configURI, "Active validation configuration",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.validator.Config())
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      configURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
