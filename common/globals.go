package common

// KvasirVersion is the current version of the Kvasir compiler.
const KvasirVersion = "0.3.0"

// KvasirCompilerID is the full identifying string of the compiler.
const KvasirCompilerID = "kvasir v" + KvasirVersion

// SrcFileExtension is the file extension of Kvasir source files.
const SrcFileExtension = ".kvs"
