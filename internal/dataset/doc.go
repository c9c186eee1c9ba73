// Package dataset loads score-ranked records together with their pairwise
// distance and correlation bounds.
//
// Datasets live in a directory per name, one matrix file per artifact:
//
//	<dir>/<name>/data.bmx    records, one per row
//	<dir>/<name>/score.bmx   n × 1 score column
//	<dir>/<name>/dm_lb.bmx   distance lower bounds
//	<dir>/<name>/dm_ub.bmx   distance upper bounds
//	<dir>/<name>/cm_lb.bmx   correlation lower bounds
//	<dir>/<name>/cm_ub.bmx   correlation upper bounds
//
// Matrix files are memory mapped, so slicing a large bound matrix to its
// leading N × N block touches only the pages that block lives on.
package dataset
