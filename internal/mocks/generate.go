// Package mocks provides gomock implementations of the console's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockAuthAPI(ctrl)
//	api.EXPECT().Me(gomock.Any(), "tok1").Return(identity, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_api_mock.go github.com/target/media-console/internal/ports AuthAPI

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=resource_api_mock.go github.com/target/media-console/internal/ports ResourceAPI

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=quick_search_api_mock.go github.com/target/media-console/internal/ports QuickSearchAPI
