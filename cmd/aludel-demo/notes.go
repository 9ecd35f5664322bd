package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praekelt/aludel/database"
	"github.com/praekelt/aludel/service"
)

// notesStore keeps notes in an aludel table collection.
type notesStore struct {
	collection *database.Collection
}

func newNotesStore(name string, db *sql.DB) *notesStore {
	specs := []database.TableSpec{
		database.Table("notes",
			"id INTEGER PRIMARY KEY AUTOINCREMENT",
			"title TEXT NOT NULL",
			"body TEXT",
			"created_at TEXT NOT NULL",
		),
	}
	return &notesStore{
		collection: database.NewCollection("Notes", name, db, specs),
	}
}

func (s *notesStore) Init(ctx context.Context) error {
	return s.collection.CreateTables(ctx, database.Metadata{"schema": "v1"})
}

func (s *notesStore) table() string {
	return s.collection.TableName("notes")
}

// Register wires the notes handlers onto the service.
func (s *notesStore) Register(svc *service.Service) {
	svc.Post("/notes", s.create)
	svc.Get("/notes", s.list)
	svc.Get("/notes/{id}", s.get)
	svc.Delete("/notes/{id}", s.delete)
}

func (s *notesStore) create(r *http.Request) (map[string]any, error) {
	params, err := service.JSONParams(r, []string{"title"}, "body")
	if err != nil {
		return nil, err
	}
	title, ok := params["title"].(string)
	if !ok || title == "" {
		return nil, service.BadRequest("Parameter 'title' must be a non-empty string.")
	}
	body, _ := params["body"].(string)

	res, err := s.collection.Exec(r.Context(),
		"INSERT INTO "+s.table()+" (title, body, created_at) VALUES (?, ?, ?)",
		title, body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "title": title, "body": body}, nil
}

func (s *notesStore) list(r *http.Request) (map[string]any, error) {
	if _, err := service.URLParams(r, nil, "request_id"); err != nil {
		return nil, err
	}
	rows, err := s.collection.Query(r.Context(),
		"SELECT id, title, body, created_at FROM "+s.table()+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	notes := []map[string]any{}
	for rows.Next() {
		var id int64
		var title, createdAt string
		var body sql.NullString
		if err := rows.Scan(&id, &title, &body, &createdAt); err != nil {
			return nil, err
		}
		notes = append(notes, map[string]any{
			"id":         id,
			"title":      title,
			"body":       body.String,
			"created_at": createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"notes": notes}, nil
}

func noteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, service.BadRequest("Parameter 'id' must be an integer.")
	}
	return id, nil
}

func (s *notesStore) get(r *http.Request) (map[string]any, error) {
	id, err := noteID(r)
	if err != nil {
		return nil, err
	}
	row, err := s.collection.QueryRow(r.Context(),
		"SELECT id, title, body, created_at FROM "+s.table()+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}

	var title, createdAt string
	var body sql.NullString
	if err := row.Scan(&id, &title, &body, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.NewAPIError("Note not found.", http.StatusNotFound)
		}
		return nil, err
	}
	return map[string]any{
		"id":         id,
		"title":      title,
		"body":       body.String,
		"created_at": createdAt,
	}, nil
}

func (s *notesStore) delete(r *http.Request) (map[string]any, error) {
	id, err := noteID(r)
	if err != nil {
		return nil, err
	}
	res, err := s.collection.Exec(r.Context(),
		"DELETE FROM "+s.table()+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, service.NewAPIError("Note not found.", http.StatusNotFound)
	}
	return map[string]any{"deleted": id}, nil
}
