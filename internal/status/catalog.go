// Package status holds the compiled-in lifecycle status catalog.
// The statuses table is seeded from the same ids so foreign keys line up.
package status

import (
	"context"
	"database/sql"
	"fmt"

	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

var entries = []model.Status{
	{ID: 1, Name: model.StatusDraft, Description: "Request is being prepared"},
	{ID: 2, Name: model.StatusInProgress, Description: "Request is being processed"},
	{ID: 3, Name: model.StatusDone, Description: "Request has been completed"},
	{ID: 4, Name: model.StatusCancelled, Description: "Request has been cancelled"},
	{ID: 5, Name: model.StatusSubmitted, Description: "Request has been submitted for review"},
}

// Catalog resolves statuses without touching the database.
type Catalog struct {
	byID   map[int64]model.Status
	byName map[model.StatusName]model.Status
}

var _ repository.StatusRepository = (*Catalog)(nil)

// NewCatalog builds the catalog. It panics if the table above ever loses a name.
func NewCatalog() *Catalog {
	c := &Catalog{
		byID:   make(map[int64]model.Status, len(entries)),
		byName: make(map[model.StatusName]model.Status, len(entries)),
	}
	for _, s := range entries {
		c.byID[s.ID] = s
		c.byName[s.Name] = s
	}
	for _, name := range model.StatusNames() {
		if _, ok := c.byName[name]; !ok {
			panic(fmt.Sprintf("status catalog missing %s", name))
		}
	}
	return c
}

// All returns the catalog in id order.
func (c *Catalog) All() []model.Status {
	out := make([]model.Status, len(entries))
	copy(out, entries)
	return out
}

func (c *Catalog) FindByID(_ context.Context, id int64) (*model.Status, error) {
	s, ok := c.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (c *Catalog) FindByName(_ context.Context, name model.StatusName) (*model.Status, error) {
	s, ok := c.byName[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}
