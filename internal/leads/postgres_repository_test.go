package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func leadRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "business_id", "channel", "contact_id", "name", "email",
		"phone", "status", "source_intent", "notes", "created_at", "updated_at",
	})
}

func TestLeadsPostgres_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO leads`).
		WithArgs("biz-1", "whatsapp", "+5511988887777", "Carla", "carla@example.com", "", "new", "pricing", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("lead-1", now, now))

	repo := NewPostgresRepositoryWithDB(mock)
	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		BusinessID:   "biz-1",
		Channel:      " WhatsApp ",
		ContactID:    "+5511988887777",
		Name:         "Carla",
		Email:        "carla@example.com",
		SourceIntent: "pricing",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if lead.ID != "lead-1" {
		t.Errorf("id = %q, want lead-1", lead.ID)
	}
	if lead.Channel != "whatsapp" {
		t.Errorf("channel = %q, want whatsapp", lead.Channel)
	}
	if lead.Status != StatusNew {
		t.Errorf("status = %q, want new", lead.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLeadsPostgres_CreateValidationSkipsDB(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Create(context.Background(), &CreateLeadRequest{BusinessID: "biz-1", Channel: "webchat"})
	if !errors.Is(err, ErrMissingContact) {
		t.Errorf("expected ErrMissingContact, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestLeadsPostgres_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE business_id = \$1 AND id = \$2`).
		WithArgs("biz-1", "missing").
		WillReturnRows(leadRows())

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.GetByID(context.Background(), "biz-1", "missing")
	if !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestLeadsPostgres_ListWithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads WHERE business_id = \$1 AND status = \$2 AND channel = \$3`).
		WithArgs("biz-1", "new", "whatsapp").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT .+ FROM leads WHERE business_id = \$1 AND status = \$2 AND channel = \$3 ORDER BY created_at DESC, id ASC LIMIT \$4 OFFSET \$5`).
		WithArgs("biz-1", "new", "whatsapp", 2, 2).
		WillReturnRows(leadRows().
			AddRow("lead-3", "biz-1", "whatsapp", "c-3", "A", "", "", "new", "", "", now, now).
			AddRow("lead-4", "biz-1", "whatsapp", "c-4", "B", "", "", "new", "", "", now, now))

	repo := NewPostgresRepositoryWithDB(mock)
	leads, total, err := repo.List(context.Background(), "biz-1", ListLeadsFilter{
		Status:  "new",
		Channel: "whatsapp",
		Limit:   2,
		Offset:  2,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(leads) != 2 || leads[0].ID != "lead-3" {
		t.Errorf("unexpected page: %+v", leads)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLeadsPostgres_UpdatePartial(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`UPDATE leads SET updated_at = now\(\), status = \$3 WHERE business_id = \$1 AND id = \$2 RETURNING`).
		WithArgs("biz-1", "lead-1", "qualified").
		WillReturnRows(leadRows().
			AddRow("lead-1", "biz-1", "whatsapp", "c-1", "Carla", "", "", "qualified", "", "", now, now))

	repo := NewPostgresRepositoryWithDB(mock)
	status := StatusQualified
	lead, err := repo.Update(context.Background(), "biz-1", "lead-1", &UpdateLeadRequest{Status: &status})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if lead.Status != StatusQualified {
		t.Errorf("status = %q, want qualified", lead.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLeadsPostgres_DeleteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM leads WHERE business_id = \$1 AND id = \$2`).
		WithArgs("biz-1", "missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPostgresRepositoryWithDB(mock)
	if err := repo.Delete(context.Background(), "biz-1", "missing"); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestLeadsPostgres_BulkDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	ids := []string{"lead-1", "lead-2", "other"}
	mock.ExpectExec(`DELETE FROM leads WHERE business_id = \$1 AND id = ANY\(\$2\)`).
		WithArgs("biz-1", ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	repo := NewPostgresRepositoryWithDB(mock)
	deleted, err := repo.BulkDelete(context.Background(), "biz-1", ids)
	if err != nil {
		t.Fatalf("BulkDelete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}

func TestLeadsPostgres_FindByContact(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM leads\s+WHERE business_id = \$1 AND channel = \$2 AND contact_id = \$3`).
		WithArgs("biz-1", "telegram", "user-42").
		WillReturnRows(leadRows().
			AddRow("lead-9", "biz-1", "telegram", "user-42", "", "", "", "new", "faq", "", now, now))

	repo := NewPostgresRepositoryWithDB(mock)
	lead, err := repo.FindByContact(context.Background(), "biz-1", "telegram", "user-42")
	if err != nil {
		t.Fatalf("FindByContact failed: %v", err)
	}
	if lead.ID != "lead-9" {
		t.Errorf("id = %q, want lead-9", lead.ID)
	}
}
