package backtest

// btcDailyClose2020 holds daily BTC/USD closing prices from 29 May 2020 to 29 December 2020.
var btcDailyClose2020 = []float64{
	9438.914063, 9700.105469, 9463.605469, 10162.973633, 9533.760742, 9655.854492,
	9800.21582, 9664.904297, 9653.00293, 9760.063477, 9774.360352, 9794.119141,
	9870.078125, 9320.69043, 9480.735352, 9477.553711, 9386.035156, 9454.266602,
	9533.78418, 9481.567383, 9410.293945, 9290.959961, 9330.926758, 9300.915039,
	9644.076172, 9632.149414, 9314.126953, 9260.995117, 9167.824219, 9048.460938,
	9140.029297, 9185.581055, 9145.985352, 9231.139648, 9124.842773, 9084.233398,
	9126.09082, 9072.849609, 9349.161133, 9253.020508, 9427.994141, 9273.357422,
	9277.511719, 9241.054688, 9277.205078, 9238.703125, 9241.897461, 9191.980469,
	9131.8125, 9151.183594, 9158.005859, 9187.220703, 9162.514648, 9375.080078,
	9527.141602, 9585.514648, 9539.485352, 9680.234375, 9905.217773, 11017.463867,
	10912.953125, 11099.833008, 11110.210938, 11322.570313, 11758.764648, 11043.768555,
	11246.203125, 11203.823242, 11749.871094, 11778.894531, 11604.553711, 11737.325195,
	11662.256836, 11881.647461, 11404.59668, 11588.405273, 11772.65918, 11768.697266,
	11866.685547, 11895.658203, 12251.895508, 11990.884766, 11761.5, 11878.026367,
	11585.477539, 11679.696289, 11663.689453, 11773.588867, 11366.894531, 11485.608398,
	11325.295898, 11541.054688, 11508.713867, 11713.306641, 11679.316406, 11964.823242,
	11407.191406, 10230.365234, 10512.530273, 10167.216797, 10280.998047, 10369.306641,
	10134.151367, 10242.330078, 10369.02832, 10409.861328, 10452.399414, 10328.734375,
	10677.754883, 10797.761719, 10973.251953, 10951.820313, 10933.75293, 11095.870117,
	10934.925781, 10459.624023, 10539.457031, 10227.479492, 10747.472656, 10702.237305,
	10752.939453, 10771.641602, 10712.462891, 10845.411133, 10785.010742, 10624.390625,
	10583.806641, 10567.919922, 10688.03418, 10799.77832, 10619.803711, 10677.625,
	10925.444336, 11059.142578, 11296.082031, 11392.635742, 11548.719727, 11429.047852,
	11426.602539, 11502.828125, 11322.123047, 11355.982422, 11495.038086, 11745.974609,
	11913.077148, 12801.635742, 12971.548828, 12931.574219, 13108.063477, 13031.201172,
	13075.242188, 13654.214844, 13271.298828, 13437.874023, 13546.532227, 13780.995117,
	13737.032227, 13550.451172, 13950.488281, 14133.733398, 15579.729492, 15565.880859,
	14833.753906, 15479.595703, 15332.350586, 15290.90918, 15701.298828, 16276.44043,
	16317.808594, 16068.139648, 15955.577148, 16685.691406, 17645.191406, 17803.861328,
	17817.083984, 18621.316406, 18642.232422, 18370.017578, 18365.015625, 19104.410156,
	18729.839844, 17153.914063, 17112.933594, 17719.634766, 18178.322266, 19633.769531,
	18801.744141, 19205.925781, 19446.966797, 18698.384766, 19154.179688, 19343.128906,
	19191.529297, 18320.884766, 18553.298828, 18263.929688, 18051.320313, 18806.765625,
	19144.492188, 19246.919922, 19418.818359, 21308.351563, 22806.796875, 23132.865234,
	23861.765625, 23474.455078, 22794.039063, 23781.974609, 23240.203125, 23733.570313,
	24677.015625, 26439.373047, 26280.822266, 27081.810547, 27360.089844,
}
