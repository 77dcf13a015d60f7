package hl7v2

import (
	"fmt"
	"time"

	"github.com/opalmedapps/opal-reconciler/internal/reconcile"
)

// MRNSite is one hospital identifier carried in a PID-3 repetition: the
// medical record number and the site that issued it.
type MRNSite struct {
	MRN  string `json:"mrn"`
	Site string `json:"site"`
}

// PatientIdentity is the patient data carried in a PID segment, normalized
// to the same canonical forms the reconciliation comparator uses: birth
// dates as YYYY-MM-DD, sex mapped onto the canonical code space, site codes
// upper-cased.
type PatientIdentity struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth string    `json:"date_of_birth"`
	Sex         string    `json:"sex"`
	RAMQ        string    `json:"ramq"`
	MRNSites    []MRNSite `json:"mrn_sites"`
}

// CommonOrder is the order-level data carried in an ORC segment.
type CommonOrder struct {
	OrderControl     string `json:"order_control"`     // ORC-1
	PlacerOrderNum   string `json:"placer_order_num"`  // ORC-2.1
	FillerOrderNum   string `json:"filler_order_num"`  // ORC-3.1
	OrderStatus      string `json:"order_status"`      // ORC-5
	OrderedAt        string `json:"ordered_at"`        // ORC-9
	EnteredBy        string `json:"entered_by"`        // ORC-10.1
	OrderingProvider string `json:"ordering_provider"` // ORC-12.1
}

// EncodedOrder is the pharmacy encoding carried in an RXE segment.
type EncodedOrder struct {
	QuantityTiming string `json:"quantity_timing"`  // RXE-1
	GiveCode       string `json:"give_code"`        // RXE-2.1
	GiveText       string `json:"give_text"`        // RXE-2.2
	GiveCodeSystem string `json:"give_code_system"` // RXE-2.3
	GiveAmountMin  string `json:"give_amount_min"`  // RXE-3
	GiveAmountMax  string `json:"give_amount_max"`  // RXE-4
	GiveUnits      string `json:"give_units"`       // RXE-5.1
	GiveDosageForm string `json:"give_dosage_form"` // RXE-6.1
	RefillsAllowed string `json:"refills_allowed"`  // RXE-12
}

// Route is a drug administration route carried in an RXR segment.
type Route struct {
	Code string `json:"code"` // RXR-1.1
	Text string `json:"text"` // RXR-1.2
	Site string `json:"site"` // RXR-2.1
}

// OrderComponent is one RXC segment: a component of a compound order.
type OrderComponent struct {
	Type   string `json:"type"`   // RXC-1 ("B" base, "A" additive)
	Code   string `json:"code"`   // RXC-2.1
	Text   string `json:"text"`   // RXC-2.2
	Amount string `json:"amount"` // RXC-3
	Units  string `json:"units"`  // RXC-4.1
}

// PharmacyOrder is the full projection of one pharmacy (RDE) message.
type PharmacyOrder struct {
	Patient    PatientIdentity  `json:"patient"`
	Orders     []CommonOrder    `json:"orders"`
	Encoded    []EncodedOrder   `json:"encoded_orders"`
	Routes     []Route          `json:"routes"`
	Components []OrderComponent `json:"components"`
}

// ExtractPharmacyOrder pulls the pharmacy-relevant segments out of a parsed
// message. A missing or undateable PID is an error; order segments are
// optional and extracted as found.
func (m *Message) ExtractPharmacyOrder() (*PharmacyOrder, error) {
	patient, err := m.extractPatientIdentity()
	if err != nil {
		return nil, err
	}

	order := &PharmacyOrder{Patient: *patient}

	for _, orc := range m.segmentsNamed("ORC") {
		order.Orders = append(order.Orders, CommonOrder{
			OrderControl:     orc.fieldValue(1),
			PlacerOrderNum:   orc.component(2, 1),
			FillerOrderNum:   orc.component(3, 1),
			OrderStatus:      orc.fieldValue(5),
			OrderedAt:        orc.fieldValue(9),
			EnteredBy:        orc.component(10, 1),
			OrderingProvider: orc.component(12, 1),
		})
	}

	for _, rxe := range m.segmentsNamed("RXE") {
		order.Encoded = append(order.Encoded, EncodedOrder{
			QuantityTiming: rxe.fieldValue(1),
			GiveCode:       rxe.component(2, 1),
			GiveText:       rxe.component(2, 2),
			GiveCodeSystem: rxe.component(2, 3),
			GiveAmountMin:  rxe.fieldValue(3),
			GiveAmountMax:  rxe.fieldValue(4),
			GiveUnits:      rxe.component(5, 1),
			GiveDosageForm: rxe.component(6, 1),
			RefillsAllowed: rxe.fieldValue(12),
		})
	}

	for _, rxr := range m.segmentsNamed("RXR") {
		order.Routes = append(order.Routes, Route{
			Code: rxr.component(1, 1),
			Text: rxr.component(1, 2),
			Site: rxr.component(2, 1),
		})
	}

	for _, rxc := range m.segmentsNamed("RXC") {
		order.Components = append(order.Components, OrderComponent{
			Type:   rxc.fieldValue(1),
			Code:   rxc.component(2, 1),
			Text:   rxc.component(2, 2),
			Amount: rxc.fieldValue(3),
			Units:  rxc.component(4, 1),
		})
	}

	return order, nil
}

func (m *Message) extractPatientIdentity() (*PatientIdentity, error) {
	pid := m.segment("PID")
	if pid == nil {
		return nil, fmt.Errorf("hl7v2: message has no PID segment")
	}

	dobRaw := pid.fieldValue(7)
	dob, err := time.Parse("20060102", dobRaw)
	if err != nil {
		return nil, fmt.Errorf("hl7v2: parse PID-7 date of birth %q: %w", dobRaw, err)
	}

	identity := &PatientIdentity{
		FirstName:   pid.component(5, 2),
		LastName:    pid.component(5, 1),
		DateOfBirth: reconcile.DateOnly(dob),
		Sex:         reconcile.SexFromLegacy(pid.fieldValue(8)),
		RAMQ:        pid.component(2, 1),
	}

	for _, rep := range pid.repetitions(3) {
		site := MRNSite{MRN: rep[0]}
		if len(rep) > 3 {
			site.Site = reconcile.UpperText(rep[3])
		}
		identity.MRNSites = append(identity.MRNSites, site)
	}

	return identity, nil
}
