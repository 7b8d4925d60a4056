/*
Package csdlc checks multi-file OData CSDL (EDMX) schema sets.

It decides whether a set of schema documents forms a valid, non-circular and
internally consistent metadata model. The work is split in three parts:

  - A dependency graph built from edmx:Reference chains, with cycle
    detection and a topological load order (pkg/depgraph, pkg/loader).
  - A rule-based validation engine with sequential or parallel execution and
    a processing time bound (pkg/validation, pkg/rules).
  - A schema merger that consolidates same-namespace fragments and reports
    conflicting duplicates (pkg/merger).

# Usage

	c, err := csdlc.New(csdlc.WithPreset("strict"))
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	res, err := c.ValidateDirectory(ctx, "schemas", compliance.DirectoryOptions{CrossFile: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Compliant())

Invalid documents never surface as Go errors: every finding is an issue in
the result. Errors are reserved for unreadable inputs and cancellation.
*/
package csdlc
