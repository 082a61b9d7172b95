// Package service contains the application use cases that sit between the
// HTTP layer and the stores.
//
// DocumentService owns the document upload flow: it stores the file bytes,
// persists the Source and its Document in one transaction and only then
// requests background text extraction. The same service exposes the
// extraction status read used by clients polling for completion.
//
// Services receive their dependencies through constructor injection and
// depend on store interfaces, never on a concrete database.
package service
