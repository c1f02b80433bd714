// Package batchjob is a resumable file copy used by the sigresume command.
//
// The job reads an input file line by line and writes each line to an output
// file as "<n>\t<line>". After every batch the output is fsynced and a
// checkpoint {batch, in, out, records} is reported to the guard. On resume the
// input is seeked to in and the output truncated to out, so a batch cut short
// by a signal is written again in full.
package batchjob
