// Package models defines domain entities and persistence interfaces for the lenavs client.
//
// The package contains two categories of types:
//
// 1. Identity and entitlement values exchanged with remote services
//   - [Session] : A live authentication grant issued by the identity provider
//   - [Identity] : The user a session belongs to
//   - [Entitlement] : Plan tier and consumable credit balance
//   - [AuthEvent] : Identity provider change notifications
//
// 2. Persistent Entities: Database-backed editor state
//   - [Project] : An editor project with media references, styling and stanzas
//   - [Stanza] : One time-aligned block of lyrics
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
