package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"seikyu/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// querier is the read surface shared by *sql.DB and *sql.Tx, so record
// loads can run standalone or inside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Item rows cascade on invoice deletion
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateInvoice stores a new invoice and assigns its number: sequential
// per calendar day, INV-YYYYMMDD-NNN. The next sequence comes from the
// highest suffix still present for the day, not the row count, so a
// same-day delete never causes a number to be reissued. The lookup runs
// inside the same transaction as the insert so two concurrent creates
// cannot claim the same number.
func (r *SQLiteRepository) CreateInvoice(ctx context.Context, rec *InvoiceRecord) (*InvoiceRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	day := time.Now().Format("20060102")
	prefix := "INV-" + day + "-"
	var maxSeq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(substr(number, ?) AS INTEGER)), 0)
		 FROM invoices WHERE number LIKE ?`, len(prefix)+1, prefix+"%",
	).Scan(&maxSeq); err != nil {
		return nil, fmt.Errorf("max same-day invoice number: %w", err)
	}
	number := fmt.Sprintf("INV-%s-%03d", day, maxSeq+1)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (
			number, invoice_date, due_date,
			biller_name, biller_address, registration_number,
			client_name, client_address,
			bank_name, branch_name, account_type, account_number, account_holder,
			notes, tax_rate, tax_mode, rate_mode, global_rate_yen,
			subtotal_yen, tax_yen, work_total_yen, expense_total_yen, total_yen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		number,
		rec.Meta.InvoiceDate.String(), rec.Computed.DueDate.String(),
		rec.Meta.Biller.Name, rec.Meta.Biller.Address, rec.Meta.RegistrationNumber,
		rec.Meta.Client.Name, rec.Meta.Client.Address,
		rec.Meta.Bank.BankName, rec.Meta.Bank.BranchName, rec.Meta.Bank.AccountType,
		rec.Meta.Bank.AccountNumber, rec.Meta.Bank.AccountHolder,
		rec.Meta.Notes, rec.Tax.Rate, string(rec.Tax.Mode), string(rec.Rates.Mode), rec.Rates.Global.Yen,
		rec.Computed.Subtotal.Yen, rec.Computed.Tax.Yen, rec.Computed.WorkTotal.Yen,
		rec.Computed.ExpenseTotal.Yen, rec.Computed.Total.Yen,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertItems(ctx, tx, id, rec.Computed); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"id", id,
		"number", number,
		"client", rec.Meta.Client.Name,
		"total_yen", rec.Computed.Total.Yen)

	return r.GetInvoice(ctx, id)
}

// UpdateInvoice replaces a stored invoice's fields and items in full.
// The version bumps and the sync status returns to pending so the
// export worker re-syncs the row.
func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, rec *InvoiceRecord) (*InvoiceRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE invoices SET
			invoice_date = ?, due_date = ?,
			biller_name = ?, biller_address = ?, registration_number = ?,
			client_name = ?, client_address = ?,
			bank_name = ?, branch_name = ?, account_type = ?, account_number = ?, account_holder = ?,
			notes = ?, tax_rate = ?, tax_mode = ?, rate_mode = ?, global_rate_yen = ?,
			subtotal_yen = ?, tax_yen = ?, work_total_yen = ?, expense_total_yen = ?, total_yen = ?,
			version = version + 1, sync_status = 'pending', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rec.Meta.InvoiceDate.String(), rec.Computed.DueDate.String(),
		rec.Meta.Biller.Name, rec.Meta.Biller.Address, rec.Meta.RegistrationNumber,
		rec.Meta.Client.Name, rec.Meta.Client.Address,
		rec.Meta.Bank.BankName, rec.Meta.Bank.BranchName, rec.Meta.Bank.AccountType,
		rec.Meta.Bank.AccountNumber, rec.Meta.Bank.AccountHolder,
		rec.Meta.Notes, rec.Tax.Rate, string(rec.Tax.Mode), string(rec.Rates.Mode), rec.Rates.Global.Yen,
		rec.Computed.Subtotal.Yen, rec.Computed.Tax.Yen, rec.Computed.WorkTotal.Yen,
		rec.Computed.ExpenseTotal.Yen, rec.Computed.Total.Yen,
		rec.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInvoiceNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM work_items WHERE invoice_id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("delete work items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_items WHERE invoice_id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("delete expense items: %w", err)
	}
	if err := insertItems(ctx, tx, rec.ID, rec.Computed); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Invoice updated in SQLite", "id", rec.ID)

	return r.GetInvoice(ctx, rec.ID)
}

func insertItems(ctx context.Context, tx *sql.Tx, invoiceID int64, computed core.ComputedInvoice) error {
	for _, line := range computed.Work {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO work_items (invoice_id, work_date, description, hours, rate_yen, amount_yen)
			VALUES (?, ?, ?, ?, ?, ?)`,
			invoiceID, line.Date.String(), line.Description, line.Hours, line.Rate.Yen, line.Amount.Yen,
		); err != nil {
			return fmt.Errorf("insert work item: %w", err)
		}
	}
	for _, line := range computed.Expenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expense_items (invoice_id, expense_date, location, method, amount_yen, memo)
			VALUES (?, ?, ?, ?, ?, ?)`,
			invoiceID, line.Date.String(), line.Location, line.Method, line.Amount.Yen, line.Memo,
		); err != nil {
			return fmt.Errorf("insert expense item: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (*InvoiceRecord, error) {
	return getInvoice(ctx, r.db, id)
}

func getInvoice(ctx context.Context, q querier, id int64) (*InvoiceRecord, error) {
	rec := &InvoiceRecord{ID: id}
	var invoiceDate, dueDate, taxMode, rateMode string
	err := q.QueryRowContext(ctx, `
		SELECT number, invoice_date, due_date,
			biller_name, biller_address, registration_number,
			client_name, client_address,
			bank_name, branch_name, account_type, account_number, account_holder,
			notes, tax_rate, tax_mode, rate_mode, global_rate_yen,
			subtotal_yen, tax_yen, work_total_yen, expense_total_yen, total_yen,
			version, created_at, updated_at
		FROM invoices WHERE id = ?`, id,
	).Scan(
		&rec.Number, &invoiceDate, &dueDate,
		&rec.Meta.Biller.Name, &rec.Meta.Biller.Address, &rec.Meta.RegistrationNumber,
		&rec.Meta.Client.Name, &rec.Meta.Client.Address,
		&rec.Meta.Bank.BankName, &rec.Meta.Bank.BranchName, &rec.Meta.Bank.AccountType,
		&rec.Meta.Bank.AccountNumber, &rec.Meta.Bank.AccountHolder,
		&rec.Meta.Notes, &rec.Tax.Rate, &taxMode, &rateMode, &rec.Rates.Global.Yen,
		&rec.Computed.Subtotal.Yen, &rec.Computed.Tax.Yen, &rec.Computed.WorkTotal.Yen,
		&rec.Computed.ExpenseTotal.Yen, &rec.Computed.Total.Yen,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	rec.Meta.InvoiceNumber = rec.Number
	if rec.Meta.InvoiceDate, err = core.ParseDate(invoiceDate); err != nil {
		return nil, fmt.Errorf("parse invoice date: %w", err)
	}
	if rec.Computed.DueDate, err = core.ParseDate(dueDate); err != nil {
		return nil, fmt.Errorf("parse due date: %w", err)
	}
	rec.Meta.DueDate = rec.Computed.DueDate
	rec.Tax.Mode = core.TaxMode(taxMode)
	rec.Rates.Mode = core.RateMode(rateMode)
	rec.Computed.TaxRate = rec.Tax.Rate
	rec.Computed.TaxMode = rec.Tax.Mode
	rec.Computed.CombinedSubtotal = rec.Computed.Subtotal.Add(rec.Computed.ExpenseTotal)

	if rec.Computed.Work, err = loadWorkItems(ctx, q, id); err != nil {
		return nil, err
	}
	if rec.Computed.Expenses, err = loadExpenseItems(ctx, q, id); err != nil {
		return nil, err
	}

	return rec, nil
}

func loadWorkItems(ctx context.Context, q querier, invoiceID int64) ([]core.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT work_date, description, hours, rate_yen, amount_yen
		FROM work_items WHERE invoice_id = ? ORDER BY work_date, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	items := []core.LineItem{}
	for rows.Next() {
		var line core.LineItem
		var date string
		if err := rows.Scan(&date, &line.Description, &line.Hours, &line.Rate.Yen, &line.Amount.Yen); err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		if line.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse work date: %w", err)
		}
		items = append(items, line)
	}
	return items, rows.Err()
}

func loadExpenseItems(ctx context.Context, q querier, invoiceID int64) ([]core.ExpenseLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT expense_date, location, method, amount_yen, memo
		FROM expense_items WHERE invoice_id = ? ORDER BY expense_date, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list expense items: %w", err)
	}
	defer rows.Close()

	items := []core.ExpenseLine{}
	for rows.Next() {
		var line core.ExpenseLine
		var date string
		if err := rows.Scan(&date, &line.Location, &line.Method, &line.Amount.Yen, &line.Memo); err != nil {
			return nil, fmt.Errorf("scan expense item: %w", err)
		}
		if line.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse expense date: %w", err)
		}
		items = append(items, line)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]InvoiceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, number, client_name, invoice_date, total_yen, created_at
		FROM invoices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	summaries := []InvoiceSummary{}
	for rows.Next() {
		var s InvoiceSummary
		var date string
		if err := rows.Scan(&s.ID, &s.Number, &s.ClientName, &date, &s.Total.Yen, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice summary: %w", err)
		}
		if s.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse invoice date: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DeleteInvoice removes an invoice and returns the deleted record so
// the caller can publish its number to the export worker. The read and
// the delete run in one transaction so two concurrent deletes cannot
// both return the record.
func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id int64) (*InvoiceRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := getInvoice(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInvoiceNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Invoice deleted from SQLite", "id", id, "number", rec.Number)
	return rec, nil
}

// GetPendingExportInvoices returns invoices awaiting ledger export,
// oldest first. Rows that previously failed are retried too.
func (r *SQLiteRepository) GetPendingExportInvoices(ctx context.Context, limit int) ([]PendingExportInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at
		FROM invoices WHERE sync_status IN ('pending', 'error')
		ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export invoices: %w", err)
	}
	defer rows.Close()

	pending := []PendingExportInvoice{}
	for rows.Next() {
		var p PendingExportInvoice
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending invoice: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks an invoice as successfully exported
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark invoice synced: %w", err)
	}
	slog.InfoContext(ctx, "Invoice marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an invoice as having export errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark invoice sync error: %w", err)
	}
	slog.WarnContext(ctx, "Invoice marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) SaveDraft(ctx context.Context, key string, payload []byte) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO drafts (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		key, payload); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDraft(ctx context.Context, key string) (*Draft, error) {
	d := &Draft{Key: key}
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM drafts WHERE key = ?`, key,
	).Scan(&d.Payload, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) DeleteDraft(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDraftNotFound
	}
	return nil
}
