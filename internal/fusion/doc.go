// Package fusion merges several darkframe libraries into a new one.
//
// Sources are copied in the order given and the first source holding a key
// wins; later duplicates are skipped and counted in the Report. Every
// precondition (target absent, sources readable, identical ordered
// controllables, compatible image layouts) is checked before the target is
// created. The target records the axis sets and identities of its sources as
// provenance; retrieval never consults them.
package fusion
