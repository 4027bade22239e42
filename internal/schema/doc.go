// Package schema describes editable settings declaratively.
//
// A schema is an ordered list of Sections, each owning an ordered list of
// Options. Options form a closed set of variants (text, number, boolean,
// select) and are dispatched with Visit, so a renderer or validator that
// forgets a variant fails to compile instead of silently skipping it.
//
// Options are addressed by Path, a (section id, option id) pair. Path.String
// yields the flat "{section}.{option}" key that persistence callbacks receive.
//
// Schemas are usually written in YAML and loaded with Decode:
//
//	- id: general
//	  title: General
//	  options:
//	    - id: defaultCurrency
//	      label: Default currency
//	      type: select
//	      default: USD
//	      choices:
//	        - {label: US Dollar, value: USD}
//	        - {label: Euro, value: EUR}
package schema
