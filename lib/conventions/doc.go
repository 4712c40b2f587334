// Package conventions maps Go entity types to collection names and document ID
// prefixes.
//
// A collection name is derived from the entity's type name. The default rule
// splits the name into camel-case words and pluralizes the last one
// (User -> Users, OrderLine -> OrderLines). The document ID prefix, also called
// the collection tag, is the collection name lower-cased when it contains at
// most one upper-case letter (Users -> users) and kept as is otherwise.
//
// Both rules are plain functions on the Conventions struct and can be replaced.
// Types can also be mapped explicitly, either with RegisterCollectionName or by
// implementing the CollectionNamer interface.
//
// Usage:
//
//	c := conventions.DefaultConventions()
//	c.RegisterCollectionName("Person", "People")
//
//	tag, err := c.GetDocumentIDPrefix(&User{}) // "users"
//
// A Conventions value may be modified until it is handed to a document store.
// After that it should be treated as read-only; the lookup methods are safe
// for concurrent use.
package conventions
