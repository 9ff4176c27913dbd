// Package serialization stores opcore tensors in the SafeTensors format.
//
//	Format:
//	  [8 bytes: header size (uint64 LE)]
//	  [header: JSON, one entry per tensor plus "__metadata__"]
//	  [tensor data: raw little-endian bytes]
//
// SafeTensors shapes list the slowest dimension first, so a tensor of opcore
// shape {W, H, C} is stored as [C, H, W]. Padding is never written; the data
// of each tensor is dense. The layout and the quantization parameters of
// QASYMM8 tensors travel in the metadata under "<name>.layout",
// "<name>.scale" and "<name>.offset".
package serialization
