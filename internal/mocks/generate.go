// Package mocks provides mock implementations for testing the portal session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// port interfaces. The mocks are generated using go:generate directives and provide
// a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockProfileStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "p1").Return(profile, nil)
package mocks

// Generate mock for ProfileStore interface from internal/ports.
// This creates MockProfileStore with methods: Get, Put
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=profile_store_mock.go github.com/campushq/portal-api/internal/ports ProfileStore

// Generate mock for TokenCache interface from internal/ports.
// This creates MockTokenCache with methods: Load, Save, Clear
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=token_cache_mock.go github.com/campushq/portal-api/internal/ports TokenCache
