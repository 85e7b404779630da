// Package sysmem probes the amount of free system memory. It backs the
// tile-cache budget calculation, which samples it once at construction time.
package sysmem
