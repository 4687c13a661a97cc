// Package buildinfo exposes build-time information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/rtcell-go/internal/infra/buildinfo.Version=v0.3.0 \
//	  -X github.com/yndnr/rtcell-go/internal/infra/buildinfo.Commit=abc123"
//
// Fields left unset fall back to the VCS stamp embedded by the Go
// toolchain (runtime/debug.ReadBuildInfo) and to runtime.Version.
package buildinfo
