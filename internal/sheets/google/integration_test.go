//go:build integration

package google

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteTables(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := Config{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	owner := fmt.Sprintf("it-%d", time.Now().Unix())
	if err := client.WriteTables(ctx, owner, sampleTables()); err != nil {
		t.Fatalf("WriteTables: %v", err)
	}

	resp, err := client.svc.Spreadsheets.Values.Get(client.spreadsheetID, quoteSheet(SheetTitle(owner, "Transactions"))+"!A1:C2").Context(ctx).Do()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(resp.Values) != 2 {
		t.Fatalf("expected header and one row, got %v", resp.Values)
	}
	t.Logf("wrote %s: %v", owner, resp.Values)
}
