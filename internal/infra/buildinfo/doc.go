// Package buildinfo reports the version of the SheetSync binaries.
//
// Release builds inject values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/sheetsync-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/yndnr/sheetsync-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Values left unset fall back to the module build information recorded by
// the Go toolchain.
package buildinfo
