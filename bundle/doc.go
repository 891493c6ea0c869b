// Package bundle encodes processed dataset entries (two featurized graphs and
// the product-density label) into a self-describing binary artifact.
//
// # Binary Format
//
//	Header (16 bytes):
//	  Magic       (4 bytes) - 0x53504442 ("SPDB")
//	  Version     (2 bytes) - Format version (currently 1)
//	  Compression (1 byte)  - compress.Type of the block
//	  Reserved    (1 byte)
//	  Checksum    (4 bytes) - CRC32-IEEE of the block
//	  Length      (4 bytes) - Block length in bytes
//
//	Block: compress block holding the payload
//
//	Payload:
//	  Name   (string)  - entry name
//	  Label  (8 bytes) - float64 bits
//	  Graph m1, Graph m2:
//	    NumNodes   (8 bytes)
//	    FeatureDim (4 bytes)
//	    Label      (8 bytes)
//	    Features   (NumNodes*FeatureDim float64)
//	    NumEdges   (8 bytes)
//	    Rows       (NumEdges uint64)
//	    Cols       (NumEdges uint64)
//
// Strings are length-prefixed (2-byte length + bytes). All integers are
// little-endian. Floats are stored as raw IEEE-754 bits so decoding
// reproduces the encoded bundle exactly.
package bundle
