package browser_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/playwright-community/playwright-go"
)

const leadsCSV = "Email,Name,Company\njo@acme.com,Jo,Acme\nbroken,Al,Beta\nJO@acme.com,Jo,Acme\nsam@gamma.io,Sam,Gamma\n"

func uploadLeads(t *testing.T, app *testApp, page playwright.Page) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	if err := os.WriteFile(path, []byte(leadsCSV), 0600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := page.Goto(app.BaseURL + "/"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := page.Locator("#lead-file").SetInputFiles(path); err != nil {
		t.Fatalf("set input files: %v", err)
	}
	if err := page.Locator("#parse-button").Click(); err != nil {
		t.Fatalf("click parse: %v", err)
	}
	waitForText(t, page.Locator("#upload-status"), "Parsed 2 leads.")
}

func TestUpload_ShowsSummary(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	uploadLeads(t, app, page)

	waitForText(t, page.Locator("#total-rows"), "4")
	waitForText(t, page.Locator("#valid-emails"), "2")
	waitForText(t, page.Locator("#invalid-emails"), "1")
	waitForText(t, page.Locator("#duplicates"), "1")

	rows, err := page.Locator("#errors tbody tr").Count()
	if err != nil {
		t.Fatalf("count error rows: %v", err)
	}
	if rows != 2 {
		t.Errorf("error rows = %d, want 2", rows)
	}
}

func TestUpload_SendToAll(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	uploadLeads(t, app, page)

	if err := page.Locator("#subject").Fill("Hello {{name}}"); err != nil {
		t.Fatalf("fill subject: %v", err)
	}
	if err := page.Locator("#text-body").Fill("An offer for {{company}}"); err != nil {
		t.Fatalf("fill body: %v", err)
	}
	if err := page.Locator("#send-button").Click(); err != nil {
		t.Fatalf("click send: %v", err)
	}
	waitForText(t, page.Locator("#send-status"), "Sent 2 emails, 0 failed")

	got := app.Sender.sent()
	slices.Sort(got)
	if !slices.Equal(got, []string{"jo@acme.com", "sam@gamma.io"}) {
		t.Errorf("recipients = %v, want jo@acme.com and sam@gamma.io", got)
	}
}
