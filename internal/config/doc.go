// Package config defines configuration structures for the impfwidget CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (IMPFWIDGET_ prefix), optionally from a .env file
//   - YAML configuration file
//
// # Example
//
//	url: https://interaktiv.morgenpost.de/data/corona/rki-vaccinations.json
//	population: 83190556
//	family: medium
//	locale: de-DE
//	refresh_interval: 8h
//	cache_url: file:///var/lib/impfwidget
//	retry:
//	  attempts: 0
//	server:
//	  addr: ":8080"
//	  rate_limit: 10
//	log:
//	  level: info
//	  format: json
package config
