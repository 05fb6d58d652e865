// Package catalog holds the static health topics and the languages they can
// be translated into.
package catalog
