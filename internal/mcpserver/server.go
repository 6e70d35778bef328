// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes crmdesk tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/crmdesk/internal/apperr"
	"github.com/starford/crmdesk/internal/customerservice"
	"github.com/starford/crmdesk/internal/derive"
	"github.com/starford/crmdesk/internal/models"
)

const importFormatURI = "crm://import-format"

// Server wraps the MCP server with crmdesk tools.
type Server struct {
	mcp *server.MCPServer
	svc *customerservice.Service
}

// New creates a new MCP server with all crmdesk tools registered.
func New(svc *customerservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"crmdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_customers",
		mcp.WithDescription("Search customers by company, contact person, email, industry or additional contacts. "+
			"Returns a compact JSON list."),
		mcp.WithString("query", mcp.Description("Search term (empty lists all)")),
		mcp.WithBoolean("inactive", mcp.Description("Search the inactive customers instead of the active ones")),
	), s.searchCustomers)

	s.mcp.AddTool(mcp.NewTool("read_customer",
		mcp.WithDescription("Read a customer record with its history (notes plus the pending next step), newest first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Customer ID")),
	), s.readCustomer)

	s.mcp.AddTool(mcp.NewTool("list_doings",
		mcp.WithDescription("List open reminders (doings) of active customers, earliest first, with overdue flags."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of doings (0 for all)")),
	), s.listDoings)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Append a contact note to a customer. Sets the last contact date to today."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Customer ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("create_customer",
		mcp.WithDescription("Create a customer. Only companyName is required."),
		mcp.WithString("companyName", mcp.Required(), mcp.Description("Company name")),
		mcp.WithString("contactPerson", mcp.Description("Main contact person")),
		mcp.WithString("email", mcp.Description("Email address")),
		mcp.WithString("phone", mcp.Description("Phone number")),
		mcp.WithString("source", mcp.Description("How the customer was acquired (see settings source labels)")),
		mcp.WithString("industry", mcp.Description("Industry")),
		mcp.WithString("info", mcp.Description("Free-text information")),
	), s.createCustomer)

	s.mcp.AddTool(mcp.NewTool("get_import_format",
		mcp.WithDescription("Returns the CSV/XLSX import column contract. "+
			"Call this before preparing a file for import_file."),
	), s.getImportFormat)

	s.mcp.AddTool(mcp.NewTool("import_file",
		mcp.WithDescription("Import customers from a CSV or XLSX file given as an http(s) URL or a base64 data URI. "+
			"Rows without a company name are skipped."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the file")),
		mcp.WithString("filename", mcp.Description("Optional file name used to detect the format")),
	), s.importFile)

	s.mcp.AddTool(mcp.NewTool("set_logo",
		mcp.WithDescription("Set the company logo from an image URL or base64 data URI."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
	), s.setLogo)

	// Resource: import format contract.
	s.mcp.AddResource(
		mcp.NewResource(importFormatURI, "Import Format Contract",
			mcp.WithResourceDescription("Column layout and value rules of CSV and XLSX customer imports."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type customerHit struct {
	ID            string       `json:"id"`
	CompanyName   string       `json:"companyName"`
	ContactPerson string       `json:"contactPerson,omitempty"`
	Email         string       `json:"email,omitempty"`
	LastContact   models.Date  `json:"lastContact,omitempty"`
	ReminderDate  *models.Date `json:"reminderDate,omitempty"`
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchCustomers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.svc.ListCustomers(ctx, derive.Filter{
		Search:   req.GetString("query", ""),
		Inactive: req.GetBool("inactive", false),
		Sort:     derive.SortName,
	})
	hits := make([]customerHit, len(list))
	for i, c := range list {
		hits[i] = customerHit{
			ID:            c.ID,
			CompanyName:   c.CompanyName,
			ContactPerson: c.ContactPerson,
			Email:         c.Email,
			LastContact:   c.LastContact,
			ReminderDate:  c.ReminderDate,
		}
	}
	return jsonResult(hits), nil
}

func (s *Server) readCustomer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetCustomer(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(c), nil
}

func (s *Server) listDoings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doings := s.svc.Doings(ctx, req.GetInt("limit", 0))
	if len(doings) == 0 {
		return mcp.NewToolResultText("no open doings"), nil
	}
	var b strings.Builder
	for _, d := range doings {
		marker := ""
		if d.Overdue {
			marker = " (overdue)"
		}
		fmt.Fprintf(&b, "%s%s  %s: %s [%s]\n",
			d.Customer.ReminderDate.Display(), marker, d.Customer.CompanyName, d.Customer.NextSteps, d.Customer.ID)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.AddNote(ctx, id, content)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) createCustomer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("companyName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	today := models.DateOf(s.svc.Store().Now())
	c, err := s.svc.CreateCustomer(ctx, models.Customer{
		CompanyName:   name,
		ContactPerson: req.GetString("contactPerson", ""),
		Email:         req.GetString("email", ""),
		Phone:         req.GetString("phone", ""),
		Source:        req.GetString("source", ""),
		Industry:      req.GetString("industry", ""),
		Info:          req.GetString("info", ""),
		FirstContact:  today,
		LastContact:   today,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", c.ID)), nil
}

func (s *Server) getImportFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) readImportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      importFormatURI,
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}

func (s *Server) importFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := fetch(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("filename", f.name)
	res, err := s.svc.Import(ctx, name, f.data)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) setLogo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := fetch(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	uri, err := imageDataURI(f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.SetLogo(ctx, uri); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("logo set (%s, %d bytes)", f.mediaType, len(f.data))), nil
}
