// Package catalog loads the list of known assets from the metadata catalog.
package catalog
