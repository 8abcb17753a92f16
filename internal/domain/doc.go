// Package domain models flight movement rows and the rules that classify
// them.
//
// # Input Rows
//
// Rows come from an airport movement CSV. Every column is optional. A cell
// is missing when the column is absent, the cell is blank, or the reader
// flagged it as not-a-number ("NaN"). Missing cells are represented by the
// zero [Optional], never by a sentinel string.
//
// Time columns:
//
//	actual_time    observed block time of the movement
//	schedule_time  planned time, used when actual_time is missing
//	actual_in / actual_out        observed arrival and departure
//	scheduled_in / scheduled_out  planned arrival and departure
//
// Accepted formats are ISO-8601 timestamps ("2024-06-01T08:00:00",
// "2024-06-01 08:00", optional offset) and bare wall-clock times ("08:45"),
// which take their date from the processing clock.
//
// # Classification
//
// A row that already carries actual_in and actual_out is "both". A row with
// an actual_time (or, failing that, a schedule_time) is an "arrival" whose
// departure is derived from the turnaround table. Anything else is
// "unknown". See [Classifier.Classify].
//
// # Turnaround Table
//
// Minimum ground time depends on two binary inputs:
//
//	                     narrowbody  widebody
//	special routing         60m        120m
//	other routing          120m        180m
//
// Routing is special when the first letter of the counterpart ICAO code is
// one of O H V L U G D E F. Aircraft are narrowbody when their ICAO type is
// in the reference list; a missing type counts as narrowbody. Every value
// is configurable through [RuleConfig].
//
// # Manual Carriers
//
// Some carriers publish departures that cannot be predicted from the
// arrival. Rows matching a [CarrierGroup] never get a computed departure;
// they are marked PENDING_MANUAL_INPUT with a prompt for the operator.
package domain
