package reconcile

type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

const (
	EntityCategory = "category"
	EntityItem     = "item"
)

// Change describes one difference between the local row and upstream.
// Updated changes carry one field each.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Entity string     `json:"entity"`
	ID     string     `json:"id"`
	Field  string     `json:"field,omitempty"`
	Old    string     `json:"old,omitempty"`
	New    string     `json:"new,omitempty"`
}

type Counts struct {
	Upserted int `json:"upserted"`
	Removed  int `json:"removed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (c *Counts) add(o Counts) {
	c.Upserted += o.Upserted
	c.Removed += o.Removed
	c.Skipped += o.Skipped
	c.Failed += o.Failed
}

// Result counts the primary entity (categories or items) at the top level
// and the cascaded entities separately. Items is only filled by category
// reconciliation, for items of removed categories.
type Result struct {
	Counts
	Items   Counts   `json:"items"`
	Groups  Counts   `json:"groups"`
	Options Counts   `json:"options"`
	Changes []Change `json:"changes,omitempty"`
}

// Merge folds o into r, used when one task reconciles several scopes.
func (r *Result) Merge(o Result) {
	r.Counts.add(o.Counts)
	r.Items.add(o.Items)
	r.Groups.add(o.Groups)
	r.Options.add(o.Options)
	r.Changes = append(r.Changes, o.Changes...)
}

// Partial reports whether any entity write failed.
func (r Result) Partial() bool {
	return r.Failed+r.Items.Failed+r.Groups.Failed+r.Options.Failed > 0
}
