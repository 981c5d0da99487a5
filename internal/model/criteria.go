package model

// Criteria is the grading rubric applied to a unit.
type Criteria struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// CriteriaWithReference grades an answer against the record's expected output.
var CriteriaWithReference = Criteria{
	Name: "with_reference",
	Instructions: `You are grading an answer against a reference answer.
1. The answer is correct if it conveys the same result as the reference answer. Wording, formatting and
   extra explanation do not matter; numeric values must agree after rounding to the precision of the reference.
2. The answer is incorrect if it contradicts the reference, omits part of it, or hedges between options.
3. Give a score between 0 and 1, where 1 is fully correct.`,
}

// CriteriaWithoutReference grades an answer when the record has no expected output.
var CriteriaWithoutReference = Criteria{
	Name: "without_reference",
	Instructions: `You are grading an answer to a question that has no reference answer.
1. The answer must address the question directly and be supported by the provided data.
2. Penalize fabricated values, unsupported claims and answers that refuse without reason.
3. Give a score between 0 and 1, where 1 is a complete, well-supported answer.`,
}

// CriteriaFor picks the rubric for a record.
func CriteriaFor(r Record) Criteria {
	if r.HasReference() {
		return CriteriaWithReference
	}
	return CriteriaWithoutReference
}
