// Package models defines the domain entities for the media library service.
//
// Two categories of types live here:
//
// 1. Persistent entities backed by the sqlite store:
//   - [Creator] : an owner grouping sources and warehouse items
//   - [Source] : a subscription to a remote channel or feed
//   - [FeedItem] : one discovered remote entry belonging to a source
//   - [WarehouseItem] : a locally materialized media file
//   - [Credential] : stored cookie-file authentication for a platform
//   - [AppSettings] : singleton user preferences row
//
// 2. Derived read models used by the background workers:
//   - [DownloadJob] : the join of feed item, source, and creator a
//     download needs
//   - [MetadataTarget] : the fields a metadata fetch needs per item
//
// Status values are typed strings so the persisted vocabulary stays closed.
package models
