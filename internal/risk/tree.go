package risk

import (
	"math/rand"
	"sort"
)

// sample обучающий пример: признаки (lat, lng) и целевая тяжесть
type sample struct {
	x [2]float64
	y float64
}

// node узел дерева регрессии
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(x [2]float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeParams struct {
	minSamplesLeaf int
	maxDepth       int // 0 = без ограничения
}

// buildTree строит дерево CART, минимизируя сумму квадратов отклонений.
// Порядок перебора признаков перемешивается rng, чтобы равные разбиения выбирались как в лесу.
func buildTree(samples []sample, idx []int, depth int, params treeParams, rng *rand.Rand) *node {
	sum, sumSq := moments(samples, idx)
	n := float64(len(idx))
	mean := sum / n
	parentSSE := sumSq - sum*sum/n

	if len(idx) < 2*params.minSamplesLeaf || parentSSE <= 1e-12 ||
		(params.maxDepth > 0 && depth >= params.maxDepth) {
		return &node{leaf: true, value: mean}
	}

	bestSSE := parentSSE
	bestFeature := -1
	var bestThreshold float64

	features := [2]int{0, 1}
	if rng.Intn(2) == 1 {
		features[0], features[1] = 1, 0
	}

	sorted := make([]int, len(idx))
	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return samples[sorted[a]].x[f] < samples[sorted[b]].x[f]
		})

		var leftSum, leftSq float64
		for i := 0; i < len(sorted)-1; i++ {
			s := samples[sorted[i]]
			leftSum += s.y
			leftSq += s.y * s.y

			nl := i + 1
			nr := len(sorted) - nl
			if nl < params.minSamplesLeaf || nr < params.minSamplesLeaf {
				continue
			}
			next := samples[sorted[i+1]].x[f]
			if s.x[f] == next {
				continue
			}

			rightSum := sum - leftSum
			rightSq := sumSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = (s.x[f] + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return &node{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if samples[i].x[bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      buildTree(samples, left, depth+1, params, rng),
		right:     buildTree(samples, right, depth+1, params, rng),
	}
}

func moments(samples []sample, idx []int) (sum, sumSq float64) {
	for _, i := range idx {
		y := samples[i].y
		sum += y
		sumSq += y * y
	}
	return sum, sumSq
}
