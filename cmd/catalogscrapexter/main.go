// cmd/catalogscrapexter/main.go

// Package main provides the catalogscrapexter CLI.
//
// A run fetches a catalog page, follows every product link matched by the
// profile's link selector, extracts one record per product and exports the
// records to a spreadsheet, file or database.
//
// Usage:
//
//	catalogscrapexter run <profile>
//	catalogscrapexter check <profile>
//	catalogscrapexter profile init <name> --url ... --link-pattern ...
//	catalogscrapexter serve
package main

import "os"

func main() {
	os.Exit(Execute())
}
