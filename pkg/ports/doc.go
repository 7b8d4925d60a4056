/*
Package ports defines the driven ports (interfaces) consumed by the compiler core.

These interfaces decouple validation and loading from external implementations,
so results can be cached in memory, on disk or in Redis and references can be resolved
from disk, search roots or the network.

# Key Interfaces

  - Resolver: Locates the document an edmx:Reference points at.
  - ResultCache: Stores encoded validation results keyed by content hash.
*/
package ports
