// Package models contains the GORM models of the storefront tables and the
// export log. Domain types carry no GORM tags; each model converts itself
// with ToDomain and the repositories write through the models.
package models
