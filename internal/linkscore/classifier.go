package linkscore

import "math"

// learningRate is the base SGD step size.
const learningRate = 0.1

// regularization is the L2 penalty applied to touched weights on each step.
const regularization = 1e-6

// classifier is a single binary logistic classifier trained incrementally
// over sparse hashed vectors. Weights are stored sparsely so memory grows
// with observed features, not with the hashed dimension.
type classifier struct {
	weights        map[uint32]float64
	bias           float64
	updates        int64 // training calls received
	steps          int64 // individual examples seen
	positiveWeight float64
	converge       bool
}

func newClassifier(positiveWeight float64, converge bool) *classifier {
	return &classifier{
		weights:        make(map[uint32]float64),
		positiveWeight: positiveWeight,
		converge:       converge,
	}
}

// fitted reports whether the classifier has received any training update.
func (c *classifier) fitted() bool {
	return c.updates > 0
}

// predictProba returns P(label=true | x). Callers must check fitted() first;
// an unfitted classifier carries zero weights and would answer 0.5 anyway.
func (c *classifier) predictProba(x Vector) float64 {
	margin := c.bias
	for _, t := range x {
		if w, ok := c.weights[t.Index]; ok {
			margin += w * t.Value
		}
	}
	return sigmoid(margin)
}

// partialFit performs one SGD pass over the batch. Positive examples carry
// positiveWeight times the gradient weight of negatives, correcting for the
// rarity of positive pages. Cost is proportional to the batch size only.
func (c *classifier) partialFit(xs []Vector, ys []bool) {
	for i, x := range xs {
		c.steps++
		rate := c.rate()

		p := c.predictProba(x)
		var target, weight float64
		if ys[i] {
			target = 1.0
			weight = c.positiveWeight
		} else {
			target = 0.0
			weight = 1.0
		}

		grad := (p - target) * weight * rate
		for _, t := range x {
			w := c.weights[t.Index]
			c.weights[t.Index] = w - grad*t.Value - regularization*w
		}
		c.bias -= grad
	}
	c.updates++
}

// rate returns the step size for the current example. In converge mode the
// rate decays as 1/sqrt(t), trading adaptation speed for stability; the fast
// mode keeps a constant rate so the model tracks a drifting frontier.
func (c *classifier) rate() float64 {
	if !c.converge {
		return learningRate
	}
	return learningRate / math.Sqrt(float64(c.steps))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
