// Package main provides the entry point for rtcell.
//
// rtcell drives the run-time borrow-checked cell library under load and
// reports whether its aliasing guarantees held:
//
//	rtcell stress -d 30s -w 16 --reads 0.9
//	rtcell -o json stress -c rtcell.yaml --metrics-addr 127.0.0.1:9100
//	rtcell config show -c rtcell.yaml
//	rtcell version
package main
