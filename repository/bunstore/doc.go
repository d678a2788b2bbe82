// Package bunstore is the SQL storage adapter of the repository package,
// built on Bun. It works with any dialect Bun supports.
//
// Writes join the unit of work found in the context and run when it saves
// its changes, inside its transaction when it has one. Without a unit of work
// they run immediately. Reads use the unit of work's transaction so they see
// changes already saved in it.
//
// Models with a bun soft_delete column are soft deleted; the
// repository.SoftDeleteFilter decides whether deleted rows are read back.
// Models implementing repository.MultiTenant are scoped to the current tenant
// while repository.MultiTenantFilter is enabled.
package bunstore
