// Package training drives the two passes of a word-vector training job over
// a remote corpus: a vocabulary pass followed by a training pass.
//
// Each pass reads the corpus through a resumable stream. When a pass is cut
// short, the driver saves the intermediate model and then a checkpoint
// naming the pass and the offset to resume from, so the next run continues
// where this one stopped.
package training
