// Package originals deletes source videos after their compressed versions
// have been published.
package originals
