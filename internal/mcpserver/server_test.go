package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/text/language"

	"github.com/starford/crmdesk/internal/customerservice"
	"github.com/starford/crmdesk/internal/models"
	"github.com/starford/crmdesk/internal/testutil"
)

func testServer(t *testing.T) (*Server, *customerservice.Service) {
	t.Helper()
	svc := customerservice.NewService(testutil.TestStore(t, nil), language.German, testutil.DiscardLogger())
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_customers":
		result, err = srv.searchCustomers(ctx, req)
	case "read_customer":
		result, err = srv.readCustomer(ctx, req)
	case "list_doings":
		result, err = srv.listDoings(ctx, req)
	case "add_note":
		result, err = srv.addNote(ctx, req)
	case "create_customer":
		result, err = srv.createCustomer(ctx, req)
	case "get_import_format":
		result, err = srv.getImportFormat(ctx, req)
	case "import_file":
		result, err = srv.importFile(ctx, req)
	case "set_logo":
		result, err = srv.setLogo(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadCustomer(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_customer", map[string]interface{}{
		"companyName":   "Acme Corp",
		"contactPerson": "Jane",
	})
	text := resultText(r)
	id, ok := strings.CutPrefix(text, "created: ")
	if !ok {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "read_customer", map[string]interface{}{"id": id})
	var got customerservice.CustomerDetail
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CompanyName != "Acme Corp" || got.FirstContact != "2026-10-18" {
		t.Errorf("customer = %+v", got.Customer)
	}
}

func TestCreateCustomer_MissingName(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_customer", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without companyName")
	}
}

func TestReadCustomerMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_customer", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing customer")
	}
}

func TestSearchCustomers(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	for _, name := range []string{"Acme Corp", "Beta GmbH"} {
		if _, err := svc.CreateCustomer(ctx, models.Customer{CompanyName: name}); err != nil {
			t.Fatal(err)
		}
	}

	r := callTool(t, srv, "search_customers", map[string]interface{}{"query": "acme"})
	var hits []customerHit
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hits) != 1 || hits[0].CompanyName != "Acme Corp" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestAddNoteAndDoings(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	c, err := svc.CreateCustomer(ctx, models.Customer{CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_doings", map[string]interface{}{})
	if text := resultText(r); text != "no open doings" {
		t.Errorf("empty doings = %q", text)
	}

	if _, err := svc.SetReminder(ctx, c.ID, "Call back", "2026-10-01"); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "list_doings", map[string]interface{}{"limit": 5})
	text := resultText(r)
	if !strings.Contains(text, "2026-10-01 (overdue)") || !strings.Contains(text, "Call back") {
		t.Errorf("doings = %q", text)
	}

	r = callTool(t, srv, "add_note", map[string]interface{}{"id": c.ID, "content": "Talked to Jane"})
	if r.IsError {
		t.Fatalf("add_note: %s", resultText(r))
	}
	got, err := svc.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Notes) != 1 || got.LastContact != "2026-10-18" {
		t.Errorf("customer after note = %+v", got.Customer)
	}
}

func TestImportFileDataURI(t *testing.T) {
	srv, svc := testServer(t)
	csv := "companyName,contactPerson\nAcme Corp,Jane\n,Nobody\n"
	uri := "data:text/csv;base64," + base64.StdEncoding.EncodeToString([]byte(csv))

	r := callTool(t, srv, "import_file", map[string]interface{}{"url": uri, "filename": "leads.csv"})
	if r.IsError {
		t.Fatalf("import_file: %s", resultText(r))
	}
	var res customerservice.ImportResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Imported != 1 {
		t.Errorf("imported = %d, want 1", res.Imported)
	}
	if n := len(svc.Store().Customers()); n != 1 {
		t.Errorf("customers = %d, want 1", n)
	}
}

func TestImportFile_BlockedHost(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "import_file", map[string]interface{}{"url": "http://127.0.0.1/leads.csv"})
	if !r.IsError || !strings.Contains(resultText(r), "blocked host") {
		t.Errorf("result = %q, want blocked host error", resultText(r))
	}
}

func TestSetLogo(t *testing.T) {
	srv, svc := testServer(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("data")...)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "set_logo", map[string]interface{}{"url": uri})
	if r.IsError {
		t.Fatalf("set_logo: %s", resultText(r))
	}
	if logo := svc.Settings(context.Background()).Logo; !strings.HasPrefix(logo, "data:image/png;base64,") {
		t.Errorf("logo = %q", logo)
	}

	text := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))
	r = callTool(t, srv, "set_logo", map[string]interface{}{"url": text})
	if !r.IsError {
		t.Error("expected error for non-image content")
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, err := decodeDataURI("data:text/csv,plain"); err == nil {
		t.Error("expected error for non-base64 data URI")
	}
	if _, err := decodeDataURI("data:text/csv;base64"); err == nil {
		t.Error("expected error for missing comma")
	}
	f, err := decodeDataURI("data:text/csv;base64,YSxi")
	if err != nil {
		t.Fatal(err)
	}
	if string(f.data) != "a,b" || f.mediaType != "text/csv" {
		t.Errorf("decoded = %q %q", f.data, f.mediaType)
	}
}

func TestImportFormatContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_import_format", nil)
	text := resultText(r)
	for _, col := range []string{"companyName", "reminderDate", "inactive", "sjSeen"} {
		if !strings.Contains(text, col) {
			t.Errorf("contract missing column %s", col)
		}
	}

	contents, err := srv.readImportFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("resource contents = %d", len(contents))
	}
}
