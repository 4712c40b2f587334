package conventions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/fatih/camelcase"
	"github.com/gertd/go-pluralize"
)

const (
	// DefaultIdentityPartsSeparator separates the collection tag from the numeric part of an ID.
	DefaultIdentityPartsSeparator = "/"
)

// ErrInvalidEntity is returned when no collection name can be derived from an entity.
var ErrInvalidEntity = errors.New("invalid entity")

// CollectionNamer can be implemented by entities that want to choose their collection themselves.
type CollectionNamer interface {
	CollectionName() string
}

// Conventions holds the naming rules shared by a document store and its ID generators.
type Conventions struct {
	// IdentityPartsSeparator is sent to the server, which builds the prefix as tag + separator.
	IdentityPartsSeparator string

	// FindCollectionName maps a Go type name to a collection name.
	FindCollectionName func(typeName string) string

	// TransformCollectionNameToDocumentIDPrefix maps a collection name to the collection tag.
	TransformCollectionNameToDocumentIDPrefix func(collection string) string

	mu          sync.RWMutex
	collections map[string]string // type name -> collection
}

// DefaultConventions returns conventions with the default naming rules.
func DefaultConventions() *Conventions {
	return &Conventions{
		IdentityPartsSeparator:                    DefaultIdentityPartsSeparator,
		FindCollectionName:                        DefaultFindCollectionName,
		TransformCollectionNameToDocumentIDPrefix: DefaultTransformCollectionNameToDocumentIDPrefix,
		collections:                               make(map[string]string),
	}
}

// RegisterCollectionName maps the given Go type name to a fixed collection name.
func (c *Conventions) RegisterCollectionName(typeName, collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collections == nil {
		c.collections = make(map[string]string)
	}
	c.collections[typeName] = collection
}

// GetCollectionName returns the collection an entity belongs to.
func (c *Conventions) GetCollectionName(entity any) (string, error) {
	if entity == nil {
		return "", fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if namer, ok := entity.(CollectionNamer); ok {
		if name := namer.CollectionName(); name != "" {
			return name, nil
		}
	}

	typeName := TypeName(entity)
	if typeName == "" {
		return "", fmt.Errorf("%w: cannot derive a collection from anonymous type %T", ErrInvalidEntity, entity)
	}

	c.mu.RLock()
	name, ok := c.collections[typeName]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	find := c.FindCollectionName
	if find == nil {
		find = DefaultFindCollectionName
	}
	if name = find(typeName); name == "" {
		return "", fmt.Errorf("%w: no collection for type %s", ErrInvalidEntity, typeName)
	}
	return name, nil
}

// GetDocumentIDPrefix returns the collection tag used in document IDs of the entity.
func (c *Conventions) GetDocumentIDPrefix(entity any) (string, error) {
	collection, err := c.GetCollectionName(entity)
	if err != nil {
		return "", err
	}
	transform := c.TransformCollectionNameToDocumentIDPrefix
	if transform == nil {
		transform = DefaultTransformCollectionNameToDocumentIDPrefix
	}
	return transform(collection), nil
}

// Separator returns the configured separator or the default one.
func (c *Conventions) Separator() string {
	if c.IdentityPartsSeparator == "" {
		return DefaultIdentityPartsSeparator
	}
	return c.IdentityPartsSeparator
}

// --------------------------------------------------------------------------
// Default rules
// --------------------------------------------------------------------------

var plural = pluralize.NewClient()

// DefaultFindCollectionName pluralizes the last camel-case word of the type name.
func DefaultFindCollectionName(typeName string) string {
	words := camelcase.Split(typeName)
	if len(words) == 0 {
		return ""
	}
	last := len(words) - 1
	words[last] = plural.Plural(words[last])
	return strings.Join(words, "")
}

// DefaultTransformCollectionNameToDocumentIDPrefix lower-cases names with at most one upper-case letter.
func DefaultTransformCollectionNameToDocumentIDPrefix(collection string) string {
	upper := 0
	for _, r := range collection {
		if unicode.IsUpper(r) {
			upper++
			if upper > 1 {
				return collection
			}
		}
	}
	return strings.ToLower(collection)
}

// TypeName returns the name of the entity's type with pointers removed.
func TypeName(entity any) string {
	t := reflect.TypeOf(entity)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
