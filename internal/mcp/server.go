package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/config"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/descriptions"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pdf"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pipeline"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/dossier"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/transfer"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       *transfer.Service
	templates *pdf.TemplateStore
	mcpServer *server.MCPServer
	log       *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *transfer.Service, templates *pdf.TemplateStore, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("transfer service cannot be nil")
	}
	if templates == nil {
		return nil, fmt.Errorf("template store cannot be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		templates: templates,
		mcpServer: mcpServer,
		log:       logger.WithField("component", "mcp"),
	}
	s.registerTools()

	return s, nil
}

func bundleOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("session_id",
			mcp.Description("Session returned by process_document"),
		),
		mcp.WithString("data",
			mcp.Description(`Bundle JSON: {"vendedor":{...},"comprador":{...},"vehiculo":{...}}`),
		),
	}
}

func newTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{
		mcp.WithDescription(descriptions.GetToolDescription(name)),
	}, opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(newTool("process_document",
		mcp.WithString("role",
			mcp.Required(),
			mcp.Enum(string(records.RoleSeller), string(records.RoleBuyer), string(records.RoleVehicle)),
			mcp.Description("Which slot the document fills"),
		),
		mcp.WithString("image_base64",
			mcp.Required(),
			mcp.Description("Photo of the document, base64 encoded"),
		),
		mcp.WithString("session_id",
			mcp.Description("Existing session to update; a new one is opened when empty"),
		),
	), s.handleProcessDocument)

	s.mcpServer.AddTool(newTool("render_contract", bundleOptions()...), s.handleRenderContract)
	s.mcpServer.AddTool(newTool("render_official_form", bundleOptions()...), s.handleRenderOfficialForm)

	s.mcpServer.AddTool(newTool("render_dossier", append(bundleOptions(),
		mcp.WithString("agent_nif", mcp.Description("NIF of the submitting agent")),
		mcp.WithString("agency_nif", mcp.Description("NIF of the agency")),
		mcp.WithString("division_key", mcp.Description("DGT local division key")),
		mcp.WithString("dossier_number", mcp.Description("Custom dossier number")),
	)...), s.handleRenderDossier)

	s.mcpServer.AddTool(newTool("share_encode", bundleOptions()...), s.handleShareEncode)
	s.mcpServer.AddTool(newTool("share_decode",
		mcp.WithString("blob",
			mcp.Required(),
			mcp.Description("Share blob"),
		),
	), s.handleShareDecode)

	s.mcpServer.AddTool(newTool("pdf_inspect_template",
		mcp.WithString("name",
			mcp.Description("Template file name, e.g. Mod.02-ES.pdf"),
		),
	), s.handleInspectTemplate)

	s.mcpServer.AddTool(newTool("history_list"), s.handleHistoryList)
	s.mcpServer.AddTool(newTool("history_save", bundleOptions()...), s.handleHistorySave)
}

// Handler functions
func (s *Server) handleProcessDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roleName, err := request.RequireString("role")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	role, err := records.ParseRole(roleName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	encoded, err := request.RequireString("image_base64")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	image, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("image_base64 is not valid base64", err), nil
	}
	if int64(len(image)) > s.config.MaxFileSize {
		return mcp.NewToolResultErrorf("image too large: %d bytes (max %d)", len(image), s.config.MaxFileSize), nil
	}

	result, err := s.svc.Process(ctx, request.GetString("session_id", ""), []pipeline.Upload{{Role: role, Image: image}})
	if err != nil {
		text := err.Error()
		if result != nil {
			text = fmt.Sprintf("%s: %s", text, result.Errors[role])
		}
		return mcp.NewToolResultError(text), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRenderContract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.bundleArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.RenderContract(ctx, b)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("error rendering contract", err), nil
	}
	return blobResult(fmt.Sprintf("Rendered %s (%d bytes)", out.Filename, len(out.Data)), out), nil
}

func (s *Server) handleRenderOfficialForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.bundleArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.RenderOfficialForm(ctx, b)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("error rendering official form", err), nil
	}

	text := fmt.Sprintf("Rendered %s (%d bytes)\n", out.Filename, len(out.Data))
	if out.Report != nil {
		text += fmt.Sprintf("Fields written: %d\n", len(out.Report.Written))
		if len(out.Report.Missing) > 0 {
			text += fmt.Sprintf("Fields missing from template: %s\n", strings.Join(out.Report.Missing, ", "))
		}
		for _, f := range out.Report.Failed {
			text += fmt.Sprintf("Field %s not written: %s\n", f.Name, f.Error)
		}
	}
	return blobResult(text, out), nil
}

func (s *Server) handleRenderDossier(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.bundleArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := dossier.Options{
		AgentNIF:         request.GetString("agent_nif", ""),
		AgencyNIF:        request.GetString("agency_nif", ""),
		LocalDivisionKey: request.GetString("division_key", ""),
		DossierNumber:    request.GetString("dossier_number", ""),
	}

	out, err := s.svc.RenderDossier(ctx, b, opts)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("error rendering dossier", err), nil
	}
	return mcp.NewToolResultResource(
		fmt.Sprintf("Rendered %s", out.Filename),
		mcp.TextResourceContents{
			URI:      "file:///" + out.Filename,
			MIMEType: out.ContentType,
			Text:     string(out.Data),
		},
	), nil
}

func (s *Server) handleShareEncode(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.bundleArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blob, err := s.svc.Share(b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(blob), nil
}

func (s *Server) handleShareDecode(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blob, err := request.RequireString("blob")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.LoadShared(blob)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(b)
}

func (s *Server) handleInspectTemplate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		names, err := s.templates.List()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(names) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No PDF templates found in directory: %s", s.templates.Dir())), nil
		}
		text := fmt.Sprintf("Found %d template(s) in directory: %s\n", len(names), s.templates.Dir())
		for i, n := range names {
			text += fmt.Sprintf("%d. %s\n", i+1, n)
		}
		return mcp.NewToolResultText(text), nil
	}

	data, err := s.templates.Load(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	inspection, err := pdf.Inspect(data)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("cannot inspect "+name, err), nil
	}
	return mcp.NewToolResultText(formatInspection(name, inspection)), nil
}

func (s *Server) handleHistoryList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListHistory(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("History is empty"), nil
	}

	text := fmt.Sprintf("%d saved transfer(s):\n", len(items))
	for i, item := range items {
		sum := item.Summary
		text += fmt.Sprintf("%d. %s  %s\n", i+1, item.Date, item.ID)
		text += fmt.Sprintf("   Vendedor: %s (%s)\n", sum.SellerName, sum.SellerNIF)
		text += fmt.Sprintf("   Comprador: %s (%s)\n", sum.BuyerName, sum.BuyerNIF)
		text += fmt.Sprintf("   Vehículo: %s %s %s\n", sum.VehicleMake, sum.VehicleModel, sum.VehiclePlate)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleHistorySave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.bundleArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.SaveHistory(ctx, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved as %s", item.ID)), nil
}

var errNoBundle = errors.New("either session_id or data is required")

// bundleArg resolves the bundle from session_id or from data, which may be
// a JSON string or an object
func (s *Server) bundleArg(request mcp.CallToolRequest) (records.Bundle, error) {
	if id := request.GetString("session_id", ""); id != "" {
		sess, err := s.svc.Session(id)
		if err != nil {
			return records.Bundle{}, fmt.Errorf("session %s: %w", id, err)
		}
		return sess.Snapshot(), nil
	}

	raw, ok := request.GetArguments()["data"]
	if !ok || raw == nil || raw == "" {
		return records.Bundle{}, errNoBundle
	}

	var payload []byte
	if str, isString := raw.(string); isString {
		payload = []byte(str)
	} else {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return records.Bundle{}, fmt.Errorf("invalid data: %w", err)
		}
		payload = encoded
	}

	var b records.Bundle
	if err := json.Unmarshal(payload, &b); err != nil {
		return records.Bundle{}, fmt.Errorf("invalid data: %w", err)
	}
	return b, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("cannot encode result", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func blobResult(text string, out *transfer.Rendered) *mcp.CallToolResult {
	return mcp.NewToolResultResource(text, mcp.BlobResourceContents{
		URI:      "file:///" + out.Filename,
		MIMEType: out.ContentType,
		Blob:     base64.StdEncoding.EncodeToString(out.Data),
	})
}

// Formatting methods
func formatInspection(name string, in *pdf.Inspection) string {
	text := fmt.Sprintf("PDF Template: %s\n", name)
	text += fmt.Sprintf("Pages: %d\n", in.Pages)
	text += fmt.Sprintf("Form fields: %d\n", len(in.Fields))
	for i, f := range in.Fields {
		text += fmt.Sprintf("%d. %s [%s]", i+1, f.Name, f.Type)
		if f.ReadOnly {
			text += " read-only"
		}
		if f.MaxLen > 0 {
			text += fmt.Sprintf(" max %d", f.MaxLen)
		}
		if f.Value != "" {
			text += fmt.Sprintf(" = %q", f.Value)
		}
		text += "\n"
	}
	if in.Text != "" {
		text += "\nText:\n" + in.Text
	}
	return text
}

// Run serves MCP over stdin/stdout until ctx is done or stdin closes
func (s *Server) Run(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.WithField("templates", s.templates.Dir()).Debug("Starting MCP server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(s.log.WriterLevel(logrus.ErrorLevel), "", 0))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
