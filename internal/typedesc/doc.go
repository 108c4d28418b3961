// Package typedesc provides the structural type model used by the generators.
//
// Capability contracts (event types, extension interfaces, factories) are
// described by *Descriptor values. Plain value types such as int or string
// wrap a reflect.Type. Both satisfy Type, which is comparable and can be used
// directly in map keys and equality checks.
//
// Descriptors are built once and never mutated afterwards. The Resolver
// memoizes the flattened view of a descriptor (inherited methods, abstract
// methods, supertypes) so repeated lookups are cheap.
//
// Listener targets are Go functions or methods wrapped in a Target, which
// carries the owner type used for naming and visibility checks.
package typedesc
