// Package engine applies organization rules to inbox messages: the
// periodic processing cycle, single-rule execution, the retention sweep
// that trashes messages past their configured age, and the label cache
// that backs label resolution for all of them.
package engine
