// Package treasury builds the deliverable Treasury universe.
//
// The CME publishes a Treasury conversion factor workbook (TCF.xlsx) whose
// "Security Database" sheet lists every deliverable note and bond. The
// Builder filters that list by maturity, derives the coupon schedule and the
// conversion factor, enriches each security from the Treasury fiscal API,
// and resolves gateway conids for the CUSIP and its corpus CUSIP.
package treasury
