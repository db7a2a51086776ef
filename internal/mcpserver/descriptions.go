package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyze() string {
	return `Measures cyclomatic and cognitive complexity of every function, method and closure in Python, Go, JavaScript and TypeScript files. Nothing is persisted.

USE WHEN:
- Finding functions that are hard to test or read before a review
- Checking whether a refactoring actually reduced complexity
- Picking refactoring candidates in an unfamiliar codebase

INTERPRETING RESULTS:
- Cyclomatic starts at 1 and adds 1 per decision point (if, elif, loop, except, case, ternary, each extra boolean operand)
- Cognitive adds 1 + nesting depth per control-flow break; else/elif add a flat 1
- Cyclomatic > 10 or cognitive > 15: consider splitting the function
- Nested functions are named outer.inner and scored on their own body only

METRICS RETURNED:
- Per file: nodes sorted by qualified name with cyclomatic and cognitive scores
- Per file: total_cyclomatic and total_cognitive
- errors: files that could not be parsed or read`
}

func describeReport() string {
	return `Reports the most recent recorded complexity run for each stored file, optionally with the change against the run before it.

USE WHEN:
- Reviewing the complexity recorded by decomplex analyze
- Checking which functions grew more complex since the last run (continuous=true)
- Gating a change on complexity regressions

INTERPRETING RESULTS:
- change.cyclomatic / change.cognitive > 0: the function became more complex
- A function missing from the previous run counts as 0, so new functions show their full score as change
- Files with no functions in the latest run are omitted

METRICS RETURNED:
- Per file: timestamp of the latest run, previous run timestamp when continuous
- Per node: cyclomatic, cognitive and optional change
- Per file: totals`
}

func describeTrend() string {
	return `Shows how the total complexity of each stored file evolved across all recorded runs, with a least-squares trend.

USE WHEN:
- Tracking whether a module is steadily accumulating complexity
- Reporting progress of a refactoring effort over several runs
- Spotting files whose complexity jumps between runs

INTERPRETING RESULTS:
- slope > 0: complexity grows per run; slope < 0: it shrinks
- r_squared near 1: the change is steady; near 0: noisy or flat
- Fewer than two runs give a zero trend

METRICS RETURNED:
- points: per run timestamp, node count, cyclomatic and cognitive totals
- cyclomatic / cognitive: slope, intercept and r_squared over run index`
}
