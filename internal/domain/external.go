package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ExternalDocumentStatus is the business status of an upstream document.
type ExternalDocumentStatus string

const (
	ExternalDocumentPending   ExternalDocumentStatus = "pending"
	ExternalDocumentCompleted ExternalDocumentStatus = "completed"
	ExternalDocumentCancelled ExternalDocumentStatus = "cancelled"
)

// ExternalDocument is a business document, such as a purchase order, that
// produces ledger postings once it completes.
type ExternalDocument struct {
	ID                  string
	Identifier          string
	Status              ExternalDocumentStatus
	TotalAmount         decimal.Decimal
	InvoiceNumber       string
	Description         string
	CandidateAccountIDs []string
	OrganizationID      string
}

// Reference is the human label stored on the generated group.
func (d *ExternalDocument) Reference() string {
	switch {
	case d.InvoiceNumber != "" && d.Description != "":
		return fmt.Sprintf("%s %s", d.InvoiceNumber, d.Description)
	case d.InvoiceNumber != "":
		return d.InvoiceNumber
	case d.Description != "":
		return d.Description
	default:
		return d.Identifier
	}
}
