// Package metrics counts hub activity and renders it in the Prometheus text
// exposition format.
//
// Families are assembled as client_model MetricFamily values on every scrape
// and encoded with expfmt, so no global collector registry is involved.
package metrics
