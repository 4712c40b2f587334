package hilo

import (
	"context"
	"fmt"
	"sync"

	"github.com/ValentinKolb/dDoc/lib/conventions"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
)

// MultiDatabaseGenerator owns one Generator per database and collection tag.
// Generators are created on first use.
type MultiDatabaseGenerator struct {
	client          IRangeClient
	conventions     *conventions.Conventions
	defaultDatabase string
	opts            Options

	// database -> tag -> generator
	generators *xsync.MapOf[string, *xsync.MapOf[string, *Generator]]
}

// NewMultiDatabaseGenerator creates the registry. The separator of the conventions
// overrides opts.Separator. A nil conv uses conventions.DefaultConventions.
func NewMultiDatabaseGenerator(
	client IRangeClient,
	conv *conventions.Conventions,
	defaultDatabase string,
	opts *Options,
) (*MultiDatabaseGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: range client is nil", ErrInvalidArgument)
	}
	if conv == nil {
		conv = conventions.DefaultConventions()
	}

	o := *DefaultOptions()
	if opts != nil {
		o = *opts
	}
	o.Separator = conv.Separator()
	if err := o.validate(); err != nil {
		return nil, err
	}

	return &MultiDatabaseGenerator{
		client:          client,
		conventions:     conv,
		defaultDatabase: defaultDatabase,
		opts:            o,
		generators:      xsync.NewMapOf[string, *xsync.MapOf[string, *Generator]](),
	}, nil
}

// GenerateDocumentID returns the next document ID for the entity's collection in the given database.
// An empty database selects the default database.
func (m *MultiDatabaseGenerator) GenerateDocumentID(ctx context.Context, database string, entity any) (string, error) {
	tag, err := m.conventions.GetDocumentIDPrefix(entity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return m.GenerateDocumentIDForTag(ctx, database, tag)
}

// GenerateDocumentIDForTag is GenerateDocumentID for callers that already know the collection tag.
func (m *MultiDatabaseGenerator) GenerateDocumentIDForTag(ctx context.Context, database, tag string) (string, error) {
	g, err := m.Generator(database, tag)
	if err != nil {
		return "", err
	}
	return g.GenerateDocumentID(ctx)
}

// Generator returns the generator for a database and tag, creating it if needed.
// At most one generator exists per pair.
func (m *MultiDatabaseGenerator) Generator(database, tag string) (*Generator, error) {
	if database == "" {
		database = m.defaultDatabase
	}
	if database == "" {
		return nil, fmt.Errorf("%w: no database given and no default database configured", ErrInvalidArgument)
	}
	if tag == "" {
		return nil, fmt.Errorf("%w: collection tag must not be empty", ErrInvalidArgument)
	}

	tags, _ := m.generators.LoadOrCompute(database, func() *xsync.MapOf[string, *Generator] {
		return xsync.NewMapOf[string, *Generator]()
	})
	g, _ := tags.LoadOrCompute(tag, func() *Generator {
		return newGenerator(m.client, database, tag, m.opts)
	})
	return g, nil
}

// ReturnUnusedRange returns the unused ranges of all generators and waits for it.
// Failures are logged and otherwise ignored.
func (m *MultiDatabaseGenerator) ReturnUnusedRange(ctx context.Context) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	m.generators.Range(func(_ string, tags *xsync.MapOf[string, *Generator]) bool {
		tags.Range(func(_ string, g *Generator) bool {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := g.ReturnUnusedRange(ctx); err != nil {
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
				}
			}()
			return true
		})
		return true
	})
	wg.Wait()

	if errs != nil {
		log.Warningf("failed to return %d unused range(s): %v", len(multierr.Errors(errs)), errs)
	}
}
