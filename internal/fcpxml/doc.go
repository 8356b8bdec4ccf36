// Package fcpxml compiles validated edit intents into FCPXML 1.11 documents.
//
// Compile is a pure transformation: the same intent always yields the same
// bytes. Problems that do not make the document unusable (a segment whose
// asset cannot be found, a connected-lane clip that is placed on the primary
// storyline instead) are reported in Result.Warnings rather than as errors.
package fcpxml
