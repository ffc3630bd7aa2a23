package sheets

import (
	"context"

	"fintrack/internal/export"
)

// Ports for outbound adapters.
type (
	// TableWriter replaces the content of one tab per table. Tabs are named
	// "<owner> <table name>" and created when missing.
	TableWriter interface {
		WriteTables(ctx context.Context, owner string, tables []export.Table) error
	}
)
