// Package fileutil holds the verified copy and naming helpers shared by the
// library and share packages.
package fileutil
