// Package repository define los contratos de persistencia del core de identidad.
//
// Las interfaces son independientes del almacenamiento subyacente. Las
// implementaciones concretas viven en internal/store/pg (PostgreSQL) y
// internal/store/memory (tests y entornos locales).
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        http/services (auth, mfa, oauth, apikey)     │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  UserRepository, OAuthTokenRepository, Flood...     │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	              ┌─────────┴─────────┐
//	              ▼                   ▼
//	       ┌─────────────┐     ┌─────────────┐
//	       │  store/pg   │     │ store/memory│
//	       └─────────────┘     └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los adapters nunca sobreescriben un registro existente en Create: devuelven ErrConflict
//   - Errores de dominio están en errors.go
package repository
