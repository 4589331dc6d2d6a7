// Package models holds the GORM models of the reconciliation journal.
package models
