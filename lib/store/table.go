package store

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Table holds the counter documents of one database and applies the Hi-Lo commands to them.
// Every write takes the write index of the operation, the document token is derived from it.
// Applying the same commands with the same indexes always yields the same table.
//
// Thread-safety: Table is not thread-safe. Callers serialize access.
type Table struct {
	docs map[string]Document
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{docs: make(map[string]Document)}
}

// tokenFor derives a document token from a write index.
func tokenFor(index uint64) string {
	return strconv.FormatUint(index, 10)
}

// NextRange grants [base+1, base+capacity] where base is max(doc.Max, LastMax).
func (t *Table) NextRange(args NextRangeArgs, index uint64) (RangeResult, error) {
	if args.Tag == "" {
		return RangeResult{}, NewError(RetCInvalidOperation, "tag must not be empty")
	}
	if args.Capacity <= 0 {
		return RangeResult{}, NewError(RetCInvalidOperation, fmt.Sprintf("capacity must be positive, got %d", args.Capacity))
	}
	if args.LastMax < 0 {
		return RangeResult{}, NewError(RetCInvalidOperation, fmt.Sprintf("last max must not be negative, got %d", args.LastMax))
	}

	id := HiloDocumentID(args.Tag)
	doc, ok := t.docs[id]
	if !ok {
		doc = Document{ID: id}
	}

	if args.LastToken != "" && args.LastToken != doc.Token {
		return RangeResult{}, NewConflictError(doc)
	}

	base := max(doc.Max, args.LastMax)
	doc.Max = base + args.Capacity
	doc.LastRangeAt = args.At
	doc.Token = tokenFor(index)
	t.docs[id] = doc

	return RangeResult{
		Low:      base + 1,
		High:     doc.Max,
		Document: doc,
	}, nil
}

// ReturnRange lowers the counter to Low-1 if it still equals High.
// A non-zero LastRangeAt replaces the stored one.
func (t *Table) ReturnRange(args ReturnRangeArgs, index uint64) (bool, error) {
	if args.Tag == "" {
		return false, NewError(RetCInvalidOperation, "tag must not be empty")
	}
	if args.Low < 1 || args.Low > args.High {
		return false, NewError(RetCInvalidOperation, fmt.Sprintf("invalid range [%d, %d]", args.Low, args.High))
	}

	id := HiloDocumentID(args.Tag)
	doc, ok := t.docs[id]
	if !ok || doc.Max != args.High {
		return false, nil
	}

	doc.Max = args.Low - 1
	if !args.LastRangeAt.IsZero() {
		doc.LastRangeAt = args.LastRangeAt
	}
	doc.Token = tokenFor(index)
	t.docs[id] = doc
	return true, nil
}

// Put overwrites the Max of a counter document.
func (t *Table) Put(args PutArgs, index uint64) (Document, error) {
	if _, ok := TagFromDocumentID(args.ID); !ok {
		return Document{}, NewError(RetCInvalidOperation, fmt.Sprintf("%q is not a counter document id", args.ID))
	}
	if args.Max < 0 {
		return Document{}, NewError(RetCInvalidOperation, fmt.Sprintf("max must not be negative, got %d", args.Max))
	}

	doc, ok := t.docs[args.ID]
	if !ok {
		doc = Document{ID: args.ID}
	}
	if args.ExpectedToken != "" && args.ExpectedToken != doc.Token {
		return Document{}, NewConflictError(doc)
	}

	doc.Max = args.Max
	doc.Token = tokenFor(index)
	t.docs[args.ID] = doc
	return doc, nil
}

// Get returns a document by ID.
func (t *Table) Get(id string) (Document, bool) {
	doc, ok := t.docs[id]
	return doc, ok
}

// Len returns the number of counter documents.
func (t *Table) Len() int {
	return len(t.docs)
}

// Save writes all documents as a JSON array, ordered by ID.
func (t *Table) Save(w io.Writer) error {
	docs := make([]Document, 0, len(t.docs))
	for _, doc := range t.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return json.NewEncoder(w).Encode(docs)
}

// Load replaces the table content with a snapshot written by Save.
func (t *Table) Load(r io.Reader) error {
	var docs []Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return fmt.Errorf("failed to decode counter snapshot: %w", err)
	}
	t.docs = make(map[string]Document, len(docs))
	for _, doc := range docs {
		t.docs[doc.ID] = doc
	}
	return nil
}
