// Package state defines persistence-facing contracts for saving and restoring
// scene object attribute snapshots, plus a small resolver that moves values
// between a live scene object and a Store.
//
// Responsibilities:
//   - Store[T] only loads/saves a single snapshot for a single Ref.
//   - Resolver encodes every stored slot and binding of an object into a
//     Snapshot (Save) and applies a Snapshot back inside one update
//     transaction (Restore), so dependents observe a single commit.
//   - RestoreLayered stacks several stored snapshots of one class, strongest
//     first, and applies the merged result (asset, shot and override layers).
//   - The scene package remains persistence-agnostic; all persistence logic
//     stays behind Store implementations supplied by consumers.
//
// Data flow:
//
//	*scene.SceneObject -> Resolver.Save -> Snapshot -> Store
//	Store -> Snapshot -> Resolver.Restore -> SceneObject.Update(...)
//
// Concurrency control:
//
//	Meta.ETag is a content hash assigned on every save. Passing the last seen
//	ETag to Save, Restore or Mutate fails with ErrETagMismatch when the stored
//	snapshot has moved on.
//
// Deterministic keys:
//
//	Ref.Identifier() provides the canonical storage key
//	(`scene/<scene>/object/<object>`, or `object/<object>` without a scene).
package state
